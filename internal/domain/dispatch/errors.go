package dispatch

import "homecare/internal/pkg/apperr"

var (
	ErrStaffNotFound = apperr.New(apperr.ErrNotFound, "staff member not found")
	ErrNotStaff      = apperr.New(apperr.ErrValidation, "user does not have the staff role")
)
