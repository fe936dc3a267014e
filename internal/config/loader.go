package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if TIERSYNC_CONFIG is set
//  3. env (prefix TIERSYNC_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TIERSYNC_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: TIERSYNC_GATEWAY_URL, TIERSYNC_TOP_N, ...
	// Map env keys like TIERSYNC_TOP_N -> top_n (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("TIERSYNC_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "tiersync_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.OpsAddr == "" {
		return fmt.Errorf("%w: ops_addr must not be empty", ErrInvalidConfig)
	}
	if cfg.CommandPrefix == "" {
		return fmt.Errorf("%w: command_prefix must not be empty", ErrInvalidConfig)
	}
	switch cfg.StoreBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("%w: store_backend must be file or redis, got %q", ErrInvalidConfig, cfg.StoreBackend)
	}
	if cfg.StoreBackend == "redis" && cfg.RedisAddr == "" {
		return fmt.Errorf("%w: redis_addr required for the redis backend", ErrInvalidConfig)
	}
	if cfg.TopN < 1 {
		return fmt.Errorf("%w: top_n must be positive", ErrInvalidConfig)
	}
	if cfg.AggregationWorkers < 1 {
		return fmt.Errorf("%w: aggregation_workers must be positive", ErrInvalidConfig)
	}
	if cfg.BulkDeleteLimit < 1 {
		return fmt.Errorf("%w: bulk_delete_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
