// Package docstore provides the keyed document store behind the identity
// registry and the leaderboard snapshot.
//
// Documents are small JSON blobs replaced wholesale on every write; the
// store never patches a document in place, so a crashed writer can never
// corrupt the next read.
package docstore

import "context"

// Store is a minimal keyed document store.
type Store interface {
	// Load returns the document stored under key.
	// Returns ErrNotFound if the key has never been written.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save atomically replaces the document stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Close releases any backend resources.
	Close() error
}
