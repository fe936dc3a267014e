package rating

import "errors"

// Sentinel kinds for rating service failures. Callers branch on these to
// decide what reaches the user, what is retried on the next sync, and what
// aborts a whole run.
var (
	// ErrNotFound means the handle does not resolve to any profile.
	ErrNotFound = errors.New("handle not found")

	// ErrNoGameStats means the profile exists but has no stats for the
	// configured title. Distinct from ErrNotFound on purpose.
	ErrNoGameStats = errors.New("profile has no stats for the configured game")

	// ErrTransient covers timeouts, network failures and 5xx responses.
	// The next triggered sync is the retry.
	ErrTransient = errors.New("rating service temporarily unavailable")

	// ErrUnauthorized means the credential is invalid. Fatal to the whole
	// sync run, not to a single lookup.
	ErrUnauthorized = errors.New("rating service rejected credentials")
)
