package signaling

import "homecare/internal/pkg/apperr"

var (
	ErrUnknownEvent    = apperr.New(apperr.ErrValidation, "unknown signaling event")
	ErrMalformed       = apperr.New(apperr.ErrValidation, "malformed signaling payload")
	ErrMissingTarget   = apperr.New(apperr.ErrValidation, "to is required")
	ErrSelfCall        = apperr.New(apperr.ErrValidation, "cannot signal yourself")
	ErrInvalidCallType = apperr.New(apperr.ErrValidation, "callType must be audio or video")
	ErrInvalidOffer    = apperr.New(apperr.ErrValidation, "offer must be an SDP of type offer")
	ErrInvalidAnswer   = apperr.New(apperr.ErrValidation, "answer must be an SDP of type answer")
)
