package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/tiersync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.OpsAddr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CommandPrefix, convey.ShouldEqual, "!")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
				convey.So(cfg.RatingGame, convey.ShouldEqual, "cs2")
				convey.So(cfg.FetchTimeoutMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.TopN, convey.ShouldEqual, 20)
				convey.So(cfg.BulkDeleteLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TIERSYNC_OPS_ADDR", ":8080")
			_ = os.Setenv("TIERSYNC_TOP_N", "10")
			_ = os.Setenv("TIERSYNC_AGGREGATION_WORKERS", "8")
			_ = os.Setenv("TIERSYNC_GATEWAY_URL", "ws://gateway.local/ws")
			_ = os.Setenv("TIERSYNC_RATING_API_KEY", "secret")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.OpsAddr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopN, convey.ShouldEqual, 10)
				convey.So(cfg.AggregationWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.GatewayURL, convey.ShouldEqual, "ws://gateway.local/ws")
				convey.So(cfg.RatingAPIKey, convey.ShouldEqual, "secret")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
ops_addr: ":9090"
ranking_channel: "ranking-geral"
announce_channel: "avisos"
aggregation_workers: 6
store_backend: "redis"
redis_addr: "localhost:6379"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TIERSYNC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.OpsAddr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RankingChannel, convey.ShouldEqual, "ranking-geral")
				convey.So(cfg.AnnounceChannel, convey.ShouldEqual, "avisos")
				convey.So(cfg.AggregationWorkers, convey.ShouldEqual, 6)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.TopN, convey.ShouldEqual, 20) // default
			})
		})

		convey.Convey("When env vars and file are combined", func() {
			yamlContent := `
ops_addr: ":9090"
top_n: 15
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TIERSYNC_CONFIG", tmpFile)
			_ = os.Setenv("TIERSYNC_OPS_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides file which overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpsAddr, convey.ShouldEqual, ":8080") // from env
				convey.So(cfg.TopN, convey.ShouldEqual, 15)         // from file
			})
		})

		convey.Convey("When the store backend is unknown", func() {
			_ = os.Setenv("TIERSYNC_STORE_BACKEND", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "store_backend")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the redis backend lacks an address", func() {
			_ = os.Setenv("TIERSYNC_STORE_BACKEND", "redis")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "redis_addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When top_n is not positive", func() {
			_ = os.Setenv("TIERSYNC_TOP_N", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "top_n")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("TIERSYNC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"TIERSYNC_CONFIG",
		"TIERSYNC_OPS_ADDR",
		"TIERSYNC_TOP_N",
		"TIERSYNC_AGGREGATION_WORKERS",
		"TIERSYNC_GATEWAY_URL",
		"TIERSYNC_RATING_API_KEY",
		"TIERSYNC_STORE_BACKEND",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "tiersync-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
