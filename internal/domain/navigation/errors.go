package navigation

import (
	"homecare/internal/pkg/apperr"
	"homecare/internal/pkg/geo"
)

var (
	ErrSessionNotFound  = apperr.New(apperr.ErrNotFound, "navigation session not found")
	ErrNotAssignedStaff = apperr.New(apperr.ErrForbidden, "only the assigned staff member can navigate to this booking")
	ErrBookingCancelled = apperr.New(apperr.ErrValidation, "booking is cancelled")
	ErrNoAddress        = apperr.New(apperr.ErrValidation, "booking has no address")
)

// GeocodeMissError is returned when the destination could not be geocoded.
// FallbackURL opens the address in a map app instead.
type GeocodeMissError struct {
	Address     string
	FallbackURL string
}

func (e *GeocodeMissError) Error() string {
	return "could not locate " + e.Address
}

func (e *GeocodeMissError) Unwrap() error { return geo.ErrNoMatch }
