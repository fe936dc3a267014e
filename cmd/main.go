package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/tiersync/internal/adapters/chat"
	"github.com/okian/tiersync/internal/adapters/docstore"
	"github.com/okian/tiersync/internal/adapters/rating"
	"github.com/okian/tiersync/internal/app"
	"github.com/okian/tiersync/internal/config"
	"github.com/okian/tiersync/internal/leaderboard"
	"github.com/okian/tiersync/internal/registry"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// Ops HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Local development convenience; a missing .env file is not an error.
	_ = godotenv.Load()

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to open document store", logger.Error(err))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "document store close failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "document store ready", logger.String("backend", cfg.StoreBackend))

	ratings := rating.NewClient(cfg.RatingBaseURL, cfg.RatingAPIKey,
		rating.WithGame(cfg.RatingGame),
		rating.WithTimeout(time.Duration(cfg.FetchTimeoutMS)*time.Millisecond),
	)

	gateway, err := chat.Dial(ctx, cfg.GatewayURL, cfg.GatewayToken,
		chat.WithEventBuffer(cfg.EventBuffer),
	)
	if err != nil {
		log.Error(ctx, "failed to connect to chat gateway", logger.Error(err))
		return
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			log.Error(ctx, "gateway close failed", logger.Error(err))
		}
	}()

	reg := registry.New(store)
	aggregator := leaderboard.New(reg, ratings, store, gateway, cfg.RankingChannel,
		leaderboard.WithTopN(cfg.TopN),
		leaderboard.WithWorkerCount(cfg.AggregationWorkers),
		leaderboard.WithBulkDeleteLimit(cfg.BulkDeleteLimit),
	)

	svc := app.New(reg, ratings, gateway, gateway, aggregator,
		app.WithLogger(log),
		app.WithCommandPrefix(cfg.CommandPrefix),
		app.WithAnnounceChannel(cfg.AnnounceChannel),
		app.WithFetchTimeout(time.Duration(cfg.FetchTimeoutMS)*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Ops HTTP: health and metrics only.
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting ops HTTP server", logger.String("addr", cfg.OpsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("ops HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "ops server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}

// newStore opens the configured document store backend.
func newStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	if cfg.StoreBackend == "redis" {
		return docstore.NewRedisStore(ctx, docstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return docstore.NewFileStore(cfg.DataDir)
}
