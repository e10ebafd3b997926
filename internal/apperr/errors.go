package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNoTarget      = errors.New("no target")
	ErrNoPersistMode = errors.New("no persistence mode")
	ErrTooLarge      = errors.New("too large")
	ErrClosed        = errors.New("closed")
)
