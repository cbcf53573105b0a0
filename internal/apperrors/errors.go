package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrConflict          = errors.New("conflict")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
	ErrPathViolation     = errors.New("path escapes storage root")
	ErrStorageIO         = errors.New("storage i/o failure")
	ErrValidation        = errors.New("invalid input")
)
