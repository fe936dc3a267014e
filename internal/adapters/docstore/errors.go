package docstore

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("document store unavailable")
	ErrInvalidKey  = errors.New("invalid document key")
)
