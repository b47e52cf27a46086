package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/divari/internal/config"
	"github.com/okian/divari/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.StorageDriver = config.DriverMemory
	cfg.WorkerCount = 2
	cfg.RecalcRatePerSec = 100
	cfg.RecalcBurst = 100
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		_ = logger.Init(logger.WithOutput(io.Discard))
		ctx := context.Background()

		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("DIVARI_ADDR", ":8080")
			t.Setenv("DIVARI_QUEUE_SIZE", "1000")
			t.Setenv("DIVARI_WORKER_COUNT", "4")
			t.Setenv("DIVARI_STORAGE_DRIVER", "memory")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the service is built from configuration", func() {
			svc := newService(memoryConfig(), logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then stats reflect the configuration", func() {
				stats := svc.GetStats()
				convey.So(stats["storage"], convey.ShouldEqual, config.DriverMemory)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			})

			convey.Convey("And the metrics updater reads them without panicking", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})

			convey.Convey("And the updater stops with its context", func() {
				runCtx, cancel := context.WithCancel(ctx)
				done := make(chan struct{})
				go func() {
					startServiceMetricsUpdater(runCtx, svc)
					close(done)
				}()
				cancel()
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("metrics updater did not stop")
				}
			})
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the full route table over a memory store", t, func() {
		_ = logger.Init(logger.WithOutput(io.Discard))
		ctx := context.Background()
		cfg := memoryConfig()
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, cfg, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Docs, health and stats are served", func() {
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Reports on an empty store are empty lists", func() {
			w := get("/statistics/sjal-ranking/recurve?date_start=2025-01-01&date_end=2025-12-31")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.TrimSpace(w.Body.String()), convey.ShouldEqual, `{"results":[]}`)

			w = get("/statistics/organization-points/2025")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.TrimSpace(w.Body.String()), convey.ShouldEqual, `{"results":[]}`)
		})

		convey.Convey("An unknown season cannot be calculated", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/divari/calculate", strings.NewReader(`{"season": 42}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "Invalid season")
		})
	})
}
