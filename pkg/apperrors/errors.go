package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid alert status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrRejectedContent   = errors.New("content rejected by screening")
)
