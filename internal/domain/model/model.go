// Package model contains domain models passed between layers.
package model

import "time"

// Identity binds a local community user to an external rating-service handle.
// The handle is immutable once registered; re-registration with a different
// handle is rejected at the registry.
type Identity struct {
	UserID string `json:"user_id"` // local community user id (opaque)
	Handle string `json:"handle"`  // external rating-service handle
}

// RatingRecord is the relevant slice of an external profile for one title.
// Ephemeral: fetched per query, never persisted directly.
type RatingRecord struct {
	Handle      string // handle as known by the rating service
	DisplayName string // profile display name
	Rating      int    // competitive rating (non-negative)
	TierLevel   int    // the service's own skill level for the title
	Region      string // two-letter region/country code
}

// LeaderboardEntry is one persisted row of the ranked view.
type LeaderboardEntry struct {
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating"`
	TierLevel   int    `json:"tier_level"`
}

// Snapshot is the wholesale-replaced result of one aggregation run,
// ordered non-increasing by rating and truncated to the top N.
type Snapshot struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}
