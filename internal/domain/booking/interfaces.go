package booking

import (
	"context"

	"homecare/internal/domain/user"
)

// StaffDirectory looks up the users a booking refers to.
type StaffDirectory interface {
	GetByIDs(ctx context.Context, ids []string) ([]user.User, error)
}
