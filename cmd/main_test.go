package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/config"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.SetLevelString("error")
}

func TestMainApplication(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := config.New()

		convey.Convey("When building the service and handler", func() {
			svc, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			h := newHandler(ctx, cfg, svc)

			convey.Convey("Then an event can be created over HTTP", func() {
				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"Smoke"}`))
				h.ServeHTTP(rec, req)
				convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)

				updateServiceMetrics(svc)
				convey.So(svc.GetStats()["events"], convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the storage driver is badger", func() {
			cfg.StorageDriver = config.StorageBadger
			cfg.StoragePath = filepath.Join(t.TempDir(), "badger")

			svc, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			convey.So(svc.Stop(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When the storage driver is unknown", func() {
			cfg.StorageDriver = "mysql"
			_, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestInitLogger(t *testing.T) {
	convey.Convey("Given logger settings", t, func() {
		cfg := config.New()
		cfg.LogLevel = "error"

		convey.Convey("When the format is json", func() {
			cfg.LogFormat = "json"
			convey.So(initLogger(cfg), convey.ShouldBeNil)
		})

		convey.Convey("When the level is unknown it falls back", func() {
			cfg.LogLevel = "chatty"
			convey.So(initLogger(cfg), convey.ShouldBeNil)
			_ = logger.SetLevelString("error")
		})

		convey.Convey("When the format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(initLogger(cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			convey.So(run(ctx, cfg), convey.ShouldBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given an expiring context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updaters return when it ends", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		})
	})
}
