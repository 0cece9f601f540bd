package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/salescore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars(t)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
				convey.So(cfg.IntensityCap, convey.ShouldEqual, 250.0)
				convey.So(cfg.LockStripes, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars(t)
			t.Setenv("SALESCORE_ADDR", ":8080")
			t.Setenv("SALESCORE_STORE_BACKEND", "SQLite")
			t.Setenv("SALESCORE_SQLITE_PATH", "/tmp/journeys.db")
			t.Setenv("SALESCORE_CLAMP_MAX", "90")
			t.Setenv("SALESCORE_DECAY_HORIZON", "72h")
			t.Setenv("SALESCORE_MAX_RETRIES", "5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/journeys.db")
				convey.So(cfg.ClampMax, convey.ShouldEqual, 90.0)
				convey.So(cfg.DecayHorizon, convey.ShouldEqual, 72*time.Hour)
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			clearConfigEnvVars(t)
			path := writeConfigFile(t, `
addr: ":9090"
log_format: json
catalog_path: /etc/salescore/catalog.yaml
affordability_threshold: 0.2
dedupe_size: 500
`)
			t.Setenv("SALESCORE_CONFIG", path)
			t.Setenv("SALESCORE_ADDR", ":8081")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.CatalogPath, convey.ShouldEqual, "/etc/salescore/catalog.yaml")
				convey.So(cfg.AffordabilityThreshold, convey.ShouldEqual, 0.2)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 500)
				convey.So(cfg.ClampMin, convey.ShouldEqual, 15.0)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			clearConfigEnvVars(t)
			t.Setenv("SALESCORE_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			clearConfigEnvVars(t)
			t.Setenv("SALESCORE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			clearConfigEnvVars(t)
			t.Setenv("SALESCORE_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			clearConfigEnvVars(t)
			t.Setenv("SALESCORE_LOCK_STRIPES", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salescore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SALESCORE_CONFIG", "SALESCORE_ADDR", "SALESCORE_LOG_LEVEL", "SALESCORE_LOG_FORMAT",
		"SALESCORE_STORE_BACKEND", "SALESCORE_SQLITE_PATH", "SALESCORE_CLAMP_MAX",
		"SALESCORE_DECAY_HORIZON", "SALESCORE_MAX_RETRIES", "SALESCORE_LOCK_STRIPES",
	} {
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}
