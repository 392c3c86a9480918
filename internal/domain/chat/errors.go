package chat

import "homecare/internal/pkg/apperr"

var (
	ErrEmptyMessage  = apperr.New(apperr.ErrValidation, "a message needs a body or an attachment")
	ErrMissingSender = apperr.New(apperr.ErrValidation, "bookingId, sender name and sender role are required")
	ErrInvalidType   = apperr.New(apperr.ErrValidation, "messageType must be text without media and voice, image or file with media")
	ErrInvalidMedia  = apperr.New(apperr.ErrValidation, "media uri is required")
)
