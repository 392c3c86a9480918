package booking

import "homecare/internal/pkg/apperr"

var (
	ErrBookingNotFound   = apperr.New(apperr.ErrNotFound, "booking not found")
	ErrInvalidStatus     = apperr.New(apperr.ErrValidation, "status must be one of pending, confirmed, cancelled")
	ErrInvalidTransition = apperr.New(apperr.ErrValidation, "status transition not allowed")
	ErrConcurrentUpdate  = apperr.New(apperr.ErrConflict, "booking was modified concurrently, reload and retry")
	ErrForbidden         = apperr.New(apperr.ErrForbidden, "not a participant of this booking")
)
