// Package app wires the registry, rating client, chat gateway, reconciler,
// and leaderboard aggregator into the running synchronizer service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tiersync/internal/adapters/chat"
	"github.com/okian/tiersync/internal/adapters/rating"
	"github.com/okian/tiersync/internal/domain/model"
	"github.com/okian/tiersync/internal/domain/reconcile"
	"github.com/okian/tiersync/internal/domain/tier"
	"github.com/okian/tiersync/internal/leaderboard"
	"github.com/okian/tiersync/internal/registry"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// RatingService is the slice of the rating adapter the service needs:
// profile lookups plus the public profile link used in stats replies.
type RatingService interface {
	Fetch(ctx context.Context, handle string) (model.RatingRecord, error)
	ProfileURL(displayName string) string
}

// Service owns the command loop: it reads message events from the chat
// gateway, runs verification and stats lookups, and keeps the leaderboard
// fresh after every successful verification.
type Service struct {
	mu sync.Mutex

	// Core components
	registry   *registry.Registry
	ratings    RatingService
	messenger  chat.Messenger
	directory  chat.Directory
	aggregator *leaderboard.Aggregator
	table      *tier.Table
	reconciler *reconcile.Reconciler

	// Configuration
	prefix          string
	announceChannel string
	fetchTimeout    time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCommandPrefix sets the prefix that marks a message as a command.
func WithCommandPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithAnnounceChannel sets the channel receiving first-verification
// announcements.
func WithAnnounceChannel(channelID string) Option {
	return func(s *Service) {
		if channelID != "" {
			s.announceChannel = channelID
		}
	}
}

// WithFetchTimeout bounds a single rating lookup issued from a command.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithTierTable replaces the default rating-to-label table.
func WithTierTable(table *tier.Table) Option {
	return func(s *Service) {
		if table != nil {
			s.table = table
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service over its already-connected dependencies.
func New(reg *registry.Registry, ratings RatingService, messenger chat.Messenger, directory chat.Directory, aggregator *leaderboard.Aggregator, opts ...Option) *Service {
	s := &Service{
		registry:        reg,
		ratings:         ratings,
		messenger:       messenger,
		directory:       directory,
		aggregator:      aggregator,
		table:           tier.Default(),
		prefix:          "!",
		announceChannel: "geral",
		fetchTimeout:    10 * time.Second,
		stopCh:          make(chan struct{}),
		log:             nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the tier table against the live group, replays the last
// persisted snapshot, forces a fresh aggregation, and begins dispatching
// inbound commands. It fails fast on a misconfigured table or credential.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get().Named("app")
	}

	s.log.Info(ctx, "starting tier synchronizer...")

	s.registry.Load(ctx)
	metrics.UpdateRegisteredUsers(s.registry.Count())

	guildLabels, err := s.directory.GuildLabels(ctx)
	if err != nil {
		return fmt.Errorf("read group labels: %w", err)
	}
	if err := s.table.Validate(guildLabels); err != nil {
		return fmt.Errorf("tier table mismatch against group: %w", err)
	}

	known := append(s.table.Labels(), s.table.Fallback())
	s.reconciler = reconcile.New(s.directory, s, known, reconcile.WithLogger(s.log))

	// Replay the last snapshot so the ranking channel is never blank while
	// the first aggregation runs.
	if snap, ok := s.aggregator.LoadLast(ctx); ok && len(snap.Entries) > 0 {
		if err := s.aggregator.Publish(ctx, snap, true); err != nil {
			s.log.Warn(ctx, "stale snapshot replay failed", logger.Error(err))
		}
	}

	if _, err := s.aggregator.Refresh(ctx); err != nil {
		if errors.Is(err, rating.ErrUnauthorized) {
			return fmt.Errorf("startup aggregation: %w", err)
		}
		s.log.Warn(ctx, "startup aggregation failed", logger.Error(err))
	}

	s.wg.Add(1)
	go s.dispatch(ctx)

	s.started = true
	s.log.Info(ctx, "tier synchronizer started",
		logger.Int("registered", s.registry.Count()),
		logger.String("prefix", s.prefix),
	)

	return nil
}

// Stop drains the dispatcher and marks the service stopped. The chat
// gateway and stores are owned by the caller and closed there.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.log.Info(context.Background(), "stopping tier synchronizer...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	s.started = false
	s.log.Info(context.Background(), "tier synchronizer stopped")
}

// dispatch is the single consumer of inbound message events. One command at
// a time keeps registry writes and reconciliations naturally serialized.
func (s *Service) dispatch(ctx context.Context) {
	defer s.wg.Done()

	events := s.messenger.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			metrics.UpdateInboundQueueLength(len(events))
			s.handleEvent(ctx, ev)
		}
	}
}

// Announce publishes the one-time first-verification celebration.
func (s *Service) Announce(ctx context.Context, userID, tierLabel string) error {
	text := fmt.Sprintf("Parabéns, <@%s>! Você subiu para o **%s**! 🎉", userID, tierLabel)
	return s.messenger.Send(ctx, s.announceChannel, text)
}
