// Package leaderboard computes, persists, and publishes the ranked top-N
// view over every registered identity.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/tiersync/internal/adapters/docstore"
	"github.com/okian/tiersync/internal/adapters/rating"
	"github.com/okian/tiersync/internal/domain/model"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// DocumentKey is the docstore key holding the snapshot document.
const DocumentKey = "ranking"

// Default aggregator configuration constants.
const (
	defaultTopN            = 20
	defaultWorkerCount     = 4
	defaultBulkDeleteLimit = 100
)

// Registry lists the identities to aggregate over.
type Registry interface {
	Identities() []model.Identity
}

// Publisher is the slice of the messenger the aggregator needs.
type Publisher interface {
	Send(ctx context.Context, channelID, text string) error
	BulkDelete(ctx context.Context, channelID string, limit int) error
}

// Aggregator owns the snapshot: it is derived, disposable, and replaced
// wholesale on every run.
type Aggregator struct {
	registry  Registry
	fetcher   rating.Fetcher
	store     docstore.Store
	publisher Publisher
	channelID string

	topN            int
	workerCount     int
	bulkDeleteLimit int

	log logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTopN bounds the snapshot size.
func WithTopN(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}

// WithWorkerCount bounds the fetch fan-out, to respect the rating
// service's rate limits.
func WithWorkerCount(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workerCount = n
		}
	}
}

// WithBulkDeleteLimit sets the single-batch delete bound of the output
// channel.
func WithBulkDeleteLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.bulkDeleteLimit = n
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// New constructs an Aggregator publishing into channelID.
func New(registry Registry, fetcher rating.Fetcher, store docstore.Store, publisher Publisher, channelID string, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry:        registry,
		fetcher:         fetcher,
		store:           store,
		publisher:       publisher,
		channelID:       channelID,
		topN:            defaultTopN,
		workerCount:     defaultWorkerCount,
		bulkDeleteLimit: defaultBulkDeleteLimit,
		log:             logger.Get().Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh runs one full aggregation pass: fetch every registered identity
// best-effort, sort, truncate, persist, and publish. A failed fetch
// excludes that identity and never aborts the pass; an invalid credential
// aborts the whole run.
func (a *Aggregator) Refresh(ctx context.Context) (model.Snapshot, error) {
	start := time.Now()
	metrics.RecordAggregationRun()

	identities := a.registry.Identities()
	entries, err := a.collect(ctx, identities)
	if err != nil {
		metrics.RecordAggregationError()
		return model.Snapshot{}, err
	}

	// Stable sort keeps registration order for equal ratings.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rating > entries[j].Rating })
	if len(entries) > a.topN {
		entries = entries[:a.topN]
	}

	snap := model.Snapshot{Entries: entries, UpdatedAt: time.Now().UTC()}

	if err := a.persist(ctx, snap); err != nil {
		// Degrade: the fresh view still gets published; the stale
		// document is simply what the next restart replays.
		a.log.Warn(ctx, "snapshot persist failed", logger.Error(err))
	}

	if err := a.Publish(ctx, snap, false); err != nil {
		a.log.Error(ctx, "snapshot publish failed", logger.Error(err))
	}

	metrics.RecordAggregationDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateSnapshotSize(len(snap.Entries))
	a.log.Info(ctx, "aggregation pass complete",
		logger.Int("identities", len(identities)),
		logger.Int("ranked", len(snap.Entries)),
		logger.Duration("took", time.Since(start)),
	)

	return snap, nil
}

// collect fetches every identity with bounded parallelism. The results
// slice is index-addressed so fetch order (registration order) survives
// the fan-out, which the stable sort relies on for ties.
func (a *Aggregator) collect(ctx context.Context, identities []model.Identity) ([]model.LeaderboardEntry, error) {
	results := make([]*model.LeaderboardEntry, len(identities))
	jobs := make(chan int)

	var fatalMu sync.Mutex
	var fatal error

	var wg sync.WaitGroup
	for w := 0; w < a.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				identity := identities[idx]
				rec, err := a.fetcher.Fetch(ctx, identity.Handle)
				if err != nil {
					if errors.Is(err, rating.ErrUnauthorized) {
						fatalMu.Lock()
						fatal = err
						fatalMu.Unlock()
						continue
					}
					a.log.Warn(ctx, "excluding identity from ranking",
						logger.String("handle", identity.Handle),
						logger.Error(err),
					)
					continue
				}
				results[idx] = &model.LeaderboardEntry{
					DisplayName: rec.DisplayName,
					Rating:      rec.Rating,
					TierLevel:   rec.TierLevel,
				}
			}
		}()
	}

	for idx := range identities {
		jobs <- idx
	}
	close(jobs)
	wg.Wait() // barrier: sort/truncate must see every fetch settled

	if fatal != nil {
		return nil, fmt.Errorf("aggregation aborted: %w", fatal)
	}

	entries := make([]model.LeaderboardEntry, 0, len(results))
	for _, entry := range results {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

// LoadLast returns the last persisted snapshot, if any. Unreadable or
// corrupt documents degrade to "no snapshot".
func (a *Aggregator) LoadLast(ctx context.Context) (model.Snapshot, bool) {
	data, err := a.store.Load(ctx, DocumentKey)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			a.log.Warn(ctx, "snapshot document unavailable", logger.Error(err))
		}
		return model.Snapshot{}, false
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		a.log.Warn(ctx, "snapshot document corrupt, ignoring", logger.Error(err))
		return model.Snapshot{}, false
	}
	return snap, true
}

// Publish clears the output channel (one bounded batch) and posts the
// rendered snapshot as a single message. stale marks a replay of the last
// session's snapshot rather than a fresh pass.
func (a *Aggregator) Publish(ctx context.Context, snap model.Snapshot, stale bool) error {
	if err := a.publisher.BulkDelete(ctx, a.channelID, a.bulkDeleteLimit); err != nil {
		// A deeper backlog than one batch is a known limitation.
		a.log.Warn(ctx, "clearing ranking channel failed", logger.Error(err))
	}

	if err := a.publisher.Send(ctx, a.channelID, Render(snap, stale)); err != nil {
		return fmt.Errorf("publish ranking: %w", err)
	}
	return nil
}

func (a *Aggregator) persist(ctx context.Context, snap model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := a.store.Save(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}
