package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/divari/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "divari.db")
			})
		})

		convey.Convey("When environment variables override defaults", func() {
			t.Setenv("DIVARI_ADDR", ":7000")
			t.Setenv("DIVARI_QUEUE_SIZE", "16")
			t.Setenv("DIVARI_STORAGE_DRIVER", "memory")
			t.Setenv("DIVARI_RECALC_RATE_PER_SEC", "2.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the overrides are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.RecalcRatePerSec, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "divari.yaml")
			content := "addr: \":8181\"\nworker_count: 3\nstorage_driver: postgres\npostgres_url: postgres://localhost/divari\n"
			convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
			t.Setenv("DIVARI_CONFIG", path)
			t.Setenv("DIVARI_WORKER_COUNT", "5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values load and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
				convey.So(cfg.PostgresURL, convey.ShouldEqual, "postgres://localhost/divari")
			})
		})

		convey.Convey("When the file does not exist", func() {
			t.Setenv("DIVARI_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When postgres is selected without a URL", func() {
			t.Setenv("DIVARI_STORAGE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the storage driver is unknown", func() {
			t.Setenv("DIVARI_STORAGE_DRIVER", "mongo")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DIVARI_CONFIG", "DIVARI_ADDR", "DIVARI_LOG_LEVEL", "DIVARI_LOG_FORMAT",
		"DIVARI_STORAGE_DRIVER", "DIVARI_SQLITE_PATH", "DIVARI_POSTGRES_URL",
		"DIVARI_QUEUE_SIZE", "DIVARI_WORKER_COUNT", "DIVARI_DEDUPE_SIZE",
		"DIVARI_RECALC_CONCURRENCY", "DIVARI_RECALC_RATE_PER_SEC", "DIVARI_RECALC_BURST",
		"DIVARI_MAX_RANKING_LIMIT",
	} {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}
