package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pitchtrace/internal/adapters/http/api"
	"github.com/okian/pitchtrace/internal/adapters/http/site"
	"github.com/okian/pitchtrace/internal/adapters/http/swagger"
	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
	"github.com/okian/pitchtrace/internal/adapters/repository"
	"github.com/okian/pitchtrace/internal/adapters/stream"
	app "github.com/okian/pitchtrace/internal/app"
	"github.com/okian/pitchtrace/internal/config"
	"github.com/okian/pitchtrace/internal/domain/dedupe"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/okian/pitchtrace/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if cfg.LogFormat != "text" {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			os.Exit(1)
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "pitchtrace stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts, cleanup, err := serviceOptions(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.Stop(stopCtx)
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	stopStreams, err := startStreams(ctx, cfg, svc, log)
	if err != nil {
		return err
	}
	defer stopStreams()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// serviceOptions translates cfg into service options, connecting Postgres
// and Redis when configured. cleanup releases those connections and is
// safe to call on error.
func serviceOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxQueuedSamples(cfg.MaxQueuedSamples),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDedupeTTL(cfg.DedupeTTL()),
		app.WithMaxBatchSamples(cfg.MaxUploadSamples),
		app.WithProfile(cfg.Profile()),
	}

	if cfg.Store == config.StorePostgres {
		pool, err := repository.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)

		st := repository.NewPostgresStore(pool, repository.WithPostgresLogger(log.Named("postgres")))
		if err := st.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, app.WithStore(st))
	}

	if cfg.RedisAddr != "" {
		client, err := dedupe.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts, app.WithDeduper(dedupe.NewRedisDeduper(client,
			dedupe.WithRedisTTL(cfg.DedupeTTL()),
			dedupe.WithLogger(log.Named("dedupe")),
		)))
	}

	return opts, cleanup, nil
}

// startStreams starts the Kafka and MQTT consumers enabled in cfg. The
// returned func stops them.
func startStreams(ctx context.Context, cfg *config.Config, sink stream.Sink, log logger.Logger) (func(), error) {
	var stops []func()
	stopAll := func() {
		for _, fn := range stops {
			fn()
		}
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		consumer, err := stream.NewKafkaConsumer(stream.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, sink, stream.WithKafkaLogger(log.Named("kafka")))
		if err != nil {
			return stopAll, err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := consumer.Run(ctx); err != nil {
				log.Error(ctx, "kafka consumer stopped", logger.Error(err))
			}
		}()
		stops = append(stops, func() {
			_ = consumer.Close()
			<-done
		})
	}

	if cfg.MQTTBroker != "" {
		sub, err := stream.NewMQTTSubscriber(stream.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
			QoS:      1,
		}, sink)
		if err != nil {
			stopAll()
			return func() {}, err
		}
		if err := sub.Start(ctx); err != nil {
			stopAll()
			return func() {}, err
		}
		stops = append(stops, sub.Stop)
	}

	return stopAll, nil
}

// newHandler builds the HTTP handler with every route registered.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	fetcher := tracker.NewClient(tracker.WithTimeout(cfg.TrackerTimeout()))
	api.NewServer(svc, svc, fetcher, api.WithLogger(logger.Named("api"))).Register(ctx, mux)

	return api.WithCORS(cfg.Origins(), mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges from the service's stats snapshot.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if totalPlayers, ok := stats["totalPlayers"].(int); ok {
		metrics.UpdateTotalPlayers(totalPlayers)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
