package reconcile

import "errors"

// Sentinel kinds for reconciliation errors.
var (
	ErrUnknownLabel = errors.New("target label not in the tier table")
)
