package user

import "homecare/internal/pkg/apperr"

var (
	ErrUserNotFound   = apperr.New(apperr.ErrNotFound, "user not found")
	ErrInvalidRole    = apperr.New(apperr.ErrValidation, "role must be one of owner, admin, staff, user")
	ErrEmailTaken     = apperr.New(apperr.ErrValidation, "email is already registered")
	ErrNotManager     = apperr.New(apperr.ErrForbidden, "only an owner or admin can manage users")
	ErrOwnerOnlyGrant = apperr.New(apperr.ErrForbidden, "only an owner can grant or revoke the owner role")
)
