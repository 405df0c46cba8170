package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/pitchtrace/internal/app"
	"github.com/okian/pitchtrace/internal/config"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given PITCH_ environment variables", t, func() {
		t.Setenv("PITCH_ADDR", ":8080")
		t.Setenv("PITCH_QUEUE_SIZE", "1000")
		t.Setenv("PITCH_WORKER_COUNT", "4")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given the default memory configuration", t, func() {
		cfg := config.New()
		ctx := context.Background()

		convey.Convey("Then options build without external connections", func() {
			opts, cleanup, err := serviceOptions(ctx, cfg, logger.Get())
			defer cleanup()
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(opts), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("Then no stream consumers start", func() {
			stop, err := startStreams(ctx, cfg, app.New(), logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(func() { stop() }, convey.ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given a started service behind the full handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2

		opts, cleanup, err := serviceOptions(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		svc := app.New(opts...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		h := newHandler(ctx, cfg, svc)

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			return w
		}

		convey.Convey("Then the landing page, docs and API are routed", func() {
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/data/players").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/nowhere").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then an upload is summarized and queryable", func() {
			body := `[
				{"player_id": 5, "lat": 45.0, "lon": 7.0, "timestamp": 1714586400, "heartrate": 150},
				{"player_id": 5, "lat": 45.0, "lon": 7.0001, "timestamp": 1714586401, "heartrate": 155}
			]`
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/data/upload", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			players := get("/data/players")
			convey.So(strings.TrimSpace(players.Body.String()), convey.ShouldEqual, `[{"player_id":5}]`)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then the system updater returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}
