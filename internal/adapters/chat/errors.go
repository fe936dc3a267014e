package chat

import "errors"

// Sentinel kinds for gateway errors.
var (
	// ErrPermissionDenied means the gateway refused a label or rename
	// mutation. Reported per offending operation, never fatal to a run.
	ErrPermissionDenied = errors.New("gateway denied the operation")

	// ErrUnknownEntity means the channel, member, or label does not exist.
	ErrUnknownEntity = errors.New("unknown channel, member, or label")

	// ErrRequestFailed covers any other gateway-side rejection.
	ErrRequestFailed = errors.New("gateway request failed")

	// ErrClosed means the gateway connection is gone.
	ErrClosed = errors.New("gateway connection closed")
)
