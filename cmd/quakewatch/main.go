// Package main is the entrypoint for the QuakeWatch service.
//
// It wires the catalog adapter, the zone monitor, the notification sinks,
// the optional Postgres event archive, and the HTTP/WebSocket API, then runs
// them under a single errgroup with signal-driven graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"quakewatch/internal/api"
	"quakewatch/internal/archive"
	"quakewatch/internal/catalog"
	"quakewatch/internal/config"
	"quakewatch/internal/db"
	"quakewatch/internal/monitor"
	"quakewatch/internal/notify"
	"quakewatch/internal/state"
	"quakewatch/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quakewatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("quakewatch starting",
		"environment", cfg.Environment,
		"interval", cfg.Monitor.Interval.String(),
	)

	zones, err := cfg.Zones()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog adapter.
	source := catalog.NewClient(catalog.ClientConfig{
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		UserAgent: "QuakeWatch/1.0",
	})

	// State store.
	store, cleanupState, err := buildStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupState()

	// Optional Postgres event archive.
	var pool *pgxpool.Pool
	var eventRepo *db.EventRepository
	if cfg.Database.URL != "" {
		pool, err = db.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting event archive: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		eventRepo = db.NewEventRepository(pool)
		logger.Info("event archive enabled")
	}

	// WebSocket hub (live push channel).
	hub := ws.NewHub(logger.With("component", "ws"))

	// Monitor.
	mon := monitor.New(monitor.Config{
		Source:     source,
		Store:      store,
		Recorder:   recorderOrNil(eventRepo),
		Logger:     logger.With("component", "monitor"),
		FetchFloor: cfg.Catalog.MinMagnitude,
		FetchDays:  cfg.Catalog.Days,
		FetchLimit: cfg.Catalog.Limit,
	})
	for _, z := range zones {
		mon.AddZone(z)
	}
	sinks, err := buildSinks(ctx, cfg.Sinks, hub)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		mon.AddSink(s)
	}
	mon.RestoreState(ctx)

	// HTTP API.
	var events api.EventSource
	var pingers []api.Pinger
	if eventRepo != nil {
		events = api.NewArchiveEvents(eventRepo)
		pingers = append(pingers, poolPinger{pool: pool})
	} else {
		events = api.NewCatalogEvents(source, cfg.Catalog.Limit)
	}

	srv, err := api.NewServer(api.ServerConfig{
		Logger:  logger.With("component", "api"),
		Events:  events,
		Monitor: mon,
		Zones:   zones,
		Live:    hub,
		Pingers: pingers,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return mon.Run(gctx, cfg.Monitor.Interval)
	})

	if cfg.Archive.Enabled && eventRepo != nil {
		arch := archive.New(archive.Config{
			Store:     eventRepo,
			OutputDir: cfg.Archive.OutputDir,
			Retention: cfg.Archive.Retention,
			BatchSize: cfg.Archive.BatchSize,
			Logger:    logger.With("component", "archiver"),
		})
		g.Go(func() error {
			return arch.Run(gctx, cfg.Archive.Interval)
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("quakewatch stopped cleanly")
	return nil
}

// buildStateStore selects the configured state backend. The returned cleanup
// closes the Redis connection when that backend is in use.
func buildStateStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (state.Store, func(), error) {
	switch cfg.Monitor.StateBackend {
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("MONITOR_STATE_BACKEND=redis requires REDIS_ADDR")
		}
		client, err := state.Connect(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis state backend", "addr", cfg.Redis.Addr)
		return state.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil
	default:
		logger.Info("using file state backend", "path", cfg.Monitor.StatePath)
		return state.NewFileStore(cfg.Monitor.StatePath), func() {}, nil
	}
}

// buildSinks assembles the enabled notification sinks. The websocket hub is
// always attached so connected dashboards receive every alert.
func buildSinks(ctx context.Context, cfg config.SinkConfig, hub *ws.Hub) ([]notify.Sink, error) {
	sinks := []notify.Sink{hub}

	if cfg.ConsoleEnabled {
		sinks = append(sinks, notify.NewConsoleSink(os.Stdout))
	}
	if cfg.FilePath != "" {
		sinks = append(sinks, notify.NewFileSink(cfg.FilePath))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(notify.WebhookSinkConfig{
			URL:       cfg.WebhookURL,
			Secret:    cfg.WebhookSecret,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.WebhookTimeout,
		}))
	}
	if cfg.KafkaBrokers != "" {
		ks, err := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ks)
	}
	if cfg.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for SQS sink: %w", err)
		}
		sinks = append(sinks, notify.NewSQSSink(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL))
	}
	return sinks, nil
}

// recorderOrNil avoids handing the monitor a typed-nil interface.
func recorderOrNil(repo *db.EventRepository) monitor.Recorder {
	if repo == nil {
		return nil
	}
	return repo
}

// poolPinger exposes the database pool to the health endpoint.
type poolPinger struct {
	pool *pgxpool.Pool
}

func (p poolPinger) Name() string { return "database" }

func (p poolPinger) Ping(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// newLogger creates a structured slog.Logger configured for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
