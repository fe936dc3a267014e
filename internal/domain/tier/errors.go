package tier

import "errors"

// Sentinel kinds for tier table errors.
var (
	ErrInvalidTable       = errors.New("invalid tier table")
	ErrLabelNotConfigured = errors.New("tier label not configured in group")
)
