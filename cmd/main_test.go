package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pairrank/internal/adapters/storage"
	app "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/config"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

// setStateEnv points every path setting at a fresh temp dir.
func setStateEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("PAIRRANK_RECORDINGS_DIR", filepath.Join(dir, "recordings"))
	t.Setenv("PAIRRANK_RANKINGS_FILE", filepath.Join(dir, "song_rankings.json"))
	t.Setenv("PAIRRANK_HISTORY_FILE", filepath.Join(dir, "comparison_history.json"))
	t.Setenv("PAIRRANK_BADGER_DIR", filepath.Join(dir, "badger"))
	t.Setenv("PAIRRANK_WATCH_RECORDINGS", "false")
	return dir
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		setStateEnv(t)
		t.Setenv("PAIRRANK_ADDR", ":8080")
		t.Setenv("PAIRRANK_STORAGE_BACKEND", "badger")
		t.Setenv("PAIRRANK_RANDOM_SEED", "7")

		convey.Convey("Then configuration maps onto the storage factory", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.RandomSeed, convey.ShouldEqual, 7)

			s := storageSettings(cfg)
			convey.So(s.Backend, convey.ShouldEqual, storage.BackendBadger)
			convey.So(s.BadgerDir, convey.ShouldEqual, cfg.BadgerDir)
			convey.So(s.RankingsFile, convey.ShouldEqual, cfg.RankingsFile)
		})
	})

	convey.Convey("Given an unknown storage backend", t, func() {
		setStateEnv(t)
		t.Setenv("PAIRRANK_STORAGE_BACKEND", "sqlite")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainHandler(t *testing.T) {
	convey.Convey("Given a started service behind the main handler", t, func() {
		setStateEnv(t)
		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		st, err := storage.Open(storageSettings(cfg))
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, st, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		h := newHandler(ctx, svc, cfg)
		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", target, http.NoBody))
			return w
		}

		convey.Convey("Then docs and health routes are served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the empty recordings dir was created and has no pair", func() {
			_, err := os.Stat(cfg.RecordingsDir)
			convey.So(err, convey.ShouldBeNil)
			convey.So(get("/pair").Code, convey.ShouldEqual, http.StatusConflict)
			convey.So(get("/rankings").Body.String(), convey.ShouldContainSubstring, "[]")
		})
	})
}

func TestMainRun(t *testing.T) {
	convey.Convey("Given a cancelled root context", t, func() {
		setStateEnv(t)
		t.Setenv("PAIRRANK_ADDR", "127.0.0.1:0")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run starts and shuts down cleanly", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(10 * time.Second):
				t.Fatal("run did not return")
			}
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		setStateEnv(t)
		t.Setenv("PAIRRANK_MAX_RANKINGS_LIMIT", "0")

		convey.Convey("Then run fails before serving", func() {
			convey.So(run(context.Background()), convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing metric updates", func() {
			convey.Convey("Then they should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
			})
		})
	})
}
