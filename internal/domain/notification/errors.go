package notification

import "homecare/internal/pkg/apperr"

var (
	ErrNotificationNotFound = apperr.New(apperr.ErrNotFound, "notification not found")
	ErrNotRecipient         = apperr.New(apperr.ErrForbidden, "notification belongs to another user")
	ErrInvalidTarget        = apperr.New(apperr.ErrValidation, "target must be one of all, one, some")
	ErrRecipientCount       = apperr.New(apperr.ErrValidation, "target one needs exactly one recipient and some needs at least one")
	ErrEmptyMessage         = apperr.New(apperr.ErrValidation, "message is required")
	ErrInvalidType          = apperr.New(apperr.ErrValidation, "type must be one of assignment, broadcast, alert")
	ErrUnknownRecipient     = apperr.New(apperr.ErrNotFound, "one or more recipients do not exist")
	ErrNoRecipients         = apperr.New(apperr.ErrValidation, "there are no users to notify")
)
