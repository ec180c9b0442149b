package domain

import "errors"

// Sentinel errors shared across services and repositories. Handlers map
// ErrNotFound to 404 and ErrValidation to 400; everything else is a 500.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)
