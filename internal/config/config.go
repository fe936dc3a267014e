// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// OpsAddr configures the operational HTTP listen address
	// (/healthz, /metrics), e.g. ":9080".
	OpsAddr string `koanf:"ops_addr"`

	// CommandPrefix marks chat commands, e.g. "!".
	CommandPrefix string `koanf:"command_prefix"`

	// RatingBaseURL is the rating service's API base URL.
	RatingBaseURL string `koanf:"rating_base_url"`

	// RatingAPIKey is the bearer credential for the rating service.
	RatingAPIKey string `koanf:"rating_api_key"`

	// RatingGame selects the title whose stats drive tiers.
	RatingGame string `koanf:"rating_game"`

	// FetchTimeoutMS bounds each rating fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// GatewayURL is the chat gateway websocket URL.
	GatewayURL string `koanf:"gateway_url"`

	// GatewayToken authenticates against the gateway.
	GatewayToken string `koanf:"gateway_token"`

	// RankingChannel receives the published leaderboard.
	RankingChannel string `koanf:"ranking_channel"`

	// AnnounceChannel receives first-verification announcements.
	AnnounceChannel string `koanf:"announce_channel"`

	// EventBuffer bounds the inbound gateway event queue.
	EventBuffer int `koanf:"event_buffer"`

	// StoreBackend selects persistence: "file" or "redis".
	StoreBackend string `koanf:"store_backend"`

	// DataDir holds the file backend's documents.
	DataDir string `koanf:"data_dir"`

	// Redis connection settings for the redis backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisUsername string `koanf:"redis_username"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// TopN bounds the leaderboard snapshot.
	TopN int `koanf:"top_n"`

	// AggregationWorkers bounds the rating fetch fan-out.
	AggregationWorkers int `koanf:"aggregation_workers"`

	// BulkDeleteLimit caps one clearing batch in the ranking channel.
	BulkDeleteLimit int `koanf:"bulk_delete_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		OpsAddr:            ":9080",
		CommandPrefix:      "!",
		RatingBaseURL:      "https://open.faceit.com/data/v4",
		RatingGame:         "cs2",
		FetchTimeoutMS:     10_000,
		EventBuffer:        256,
		StoreBackend:       "file",
		DataDir:            "data",
		RankingChannel:     "ranking",
		AnnounceChannel:    "geral",
		TopN:               20,
		AggregationWorkers: 4,
		BulkDeleteLimit:    100,
	}
}
