// Package registry is the single source of truth for who is registered:
// a persisted mapping of local user id to external rating-service handle.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/tiersync/internal/adapters/docstore"
	"github.com/okian/tiersync/internal/domain/model"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// DocumentKey is the docstore key holding the registry document.
const DocumentKey = "users"

// Registry holds identities in memory in registration order and persists
// the whole document on every write. Writes are serialized; reads during
// aggregation work on a point-in-time copy.
type Registry struct {
	mu         sync.RWMutex
	store      docstore.Store
	identities []model.Identity
	byUser     map[string]int // user id -> index into identities
	log        logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets a custom logger for the registry.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New constructs a Registry over the given store.
func New(store docstore.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		byUser: make(map[string]int),
		log:    logger.Get().Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the persisted registry document. An absent, unreadable, or
// corrupt document degrades to an empty registry with a logged warning;
// it never fails the caller.
func (r *Registry) Load(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.store.Load(ctx, DocumentKey)
	if err != nil {
		r.log.Warn(ctx, "registry document unavailable, starting empty", logger.Error(err))
		r.reset()
		return
	}

	var identities []model.Identity
	if err := json.Unmarshal(data, &identities); err != nil {
		r.log.Warn(ctx, "registry document corrupt, starting empty", logger.Error(err))
		r.reset()
		return
	}

	r.reset()
	for _, id := range identities {
		if id.UserID == "" || id.Handle == "" {
			continue
		}
		if _, dup := r.byUser[id.UserID]; dup {
			continue
		}
		r.byUser[id.UserID] = len(r.identities)
		r.identities = append(r.identities, id)
	}

	metrics.UpdateRegisteredUsers(len(r.identities))
	r.log.Info(ctx, "registry loaded", logger.Int("identities", len(r.identities)))
}

// Register binds a handle to a user. The first registration persists the
// identity and returns first=true. Registering the same handle again
// (case-insensitive) is a no-op with first=false. A different handle is
// rejected with ErrHandleMismatch; the stored handle stays untouched.
func (r *Registry) Register(ctx context.Context, userID, handle string) (bool, error) {
	if userID == "" || handle == "" {
		return false, fmt.Errorf("%w: empty user id or handle", ErrInvalidIdentity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byUser[userID]; ok {
		stored := r.identities[idx].Handle
		if !strings.EqualFold(stored, handle) {
			return false, fmt.Errorf("%w: registered as %q", ErrHandleMismatch, stored)
		}
		return false, nil
	}

	r.byUser[userID] = len(r.identities)
	r.identities = append(r.identities, model.Identity{UserID: userID, Handle: handle})

	if err := r.persist(ctx); err != nil {
		// Roll back so memory and the document cannot diverge.
		delete(r.byUser, userID)
		r.identities = r.identities[:len(r.identities)-1]
		return false, err
	}

	metrics.UpdateRegisteredUsers(len(r.identities))
	return true, nil
}

// Handle returns the stored handle for a user, if registered.
func (r *Registry) Handle(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byUser[userID]
	if !ok {
		return "", false
	}
	return r.identities[idx].Handle, true
}

// Identities returns a point-in-time copy in registration order.
func (r *Registry) Identities() []model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Identity, len(r.identities))
	copy(out, r.identities)
	return out
}

// Count returns the number of registered identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// persist writes the whole document. Callers hold the write lock.
func (r *Registry) persist(ctx context.Context) error {
	data, err := json.MarshalIndent(r.identities, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := r.store.Save(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}

func (r *Registry) reset() {
	r.identities = nil
	r.byUser = make(map[string]int)
}
