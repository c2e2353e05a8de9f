package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRunActive         = errors.New("iteration run already active")
	ErrRunNotPaused      = errors.New("iteration run is not paused")
	ErrMissingCredential = errors.New("provider credential missing")
	ErrInvalidConfig     = errors.New("invalid run configuration")
)
