package upload

import "homecare/internal/pkg/apperr"

var (
	ErrUploadNotFound  = apperr.New(apperr.ErrNotFound, "upload not found")
	ErrNotOwner        = apperr.New(apperr.ErrForbidden, "you do not own this upload")
	ErrFileTooLarge    = apperr.New(apperr.ErrValidation, "file exceeds the 10MB limit")
	ErrInvalidMimeType = apperr.New(apperr.ErrValidation, "file type is not allowed")
	ErrEmptyFile       = apperr.New(apperr.ErrValidation, "file is empty")
)
