package notification

import (
	"context"

	"homecare/internal/domain/booking"
	"homecare/internal/domain/user"
)

// Pusher delivers an event to every live connection of a user and returns
// how many connections received it.
type Pusher interface {
	Emit(identity, event string, payload any) int
}

type UserDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetByIDs(ctx context.Context, ids []string) ([]user.User, error)
}

type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	GetByIDs(ctx context.Context, ids []string) ([]booking.Booking, error)
}
