package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrHandleMismatch  = errors.New("already registered with a different handle")
	ErrInvalidIdentity = errors.New("invalid identity")
)
