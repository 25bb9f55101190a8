package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/kanban-api/internal/config"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/events"
	"github.com/phrazzld/kanban-api/internal/platform/memory"
	"github.com/phrazzld/kanban-api/internal/platform/postgres"
	"github.com/phrazzld/kanban-api/internal/platform/redis"
	"github.com/phrazzld/kanban-api/internal/redact"
	"github.com/phrazzld/kanban-api/internal/service"
	"github.com/phrazzld/kanban-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// cleanupTimeout bounds draining the event queue and flushing spans.
const cleanupTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure. db and redis are nil when not configured.
	db     *sql.DB
	redis  *goredis.Client
	tracer *sdktrace.TracerProvider

	// Event delivery. async is nil when events are dispatched inline.
	dispatcher *events.Dispatcher
	async      *events.AsyncPublisher

	taskService service.TaskService
}

// newApplication creates a new application instance with all dependencies initialized.
// On error every resource opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.tracer = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(app.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	transactor, err := app.setupStorage(ctx)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	if err := app.setupEvents(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	var publisher events.Publisher = app.dispatcher
	if app.async != nil {
		publisher = app.async
	}
	uow := store.NewUnitOfWork(transactor, publisher, logger, store.WithTracerProvider(app.tracer))

	app.taskService, err = service.NewTaskService(uow, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupStorage opens the configured backend and returns its transactor.
func (app *application) setupStorage(ctx context.Context) (store.Transactor, error) {
	cfg := app.config.Database

	if cfg.Driver == config.DriverMemory {
		app.logger.Warn("using in-memory task storage; data is lost on restart")
		return memory.NewStore(app.logger), nil
	}

	db, err := postgres.Open(ctx, cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, "up", app.logger); err != nil {
			return nil, err
		}
	}

	return postgres.NewTransactor(db, app.logger), nil
}

// setupEvents registers the event handlers and, when configured, starts the
// async worker pool in front of the dispatcher.
func (app *application) setupEvents(ctx context.Context) error {
	app.dispatcher = events.NewDispatcher(app.logger, events.WithTracerProvider(app.tracer))

	logging := events.NewLoggingHandler(app.logger)
	app.dispatcher.Register(domain.EventTaskStatusChanged, logging)
	app.dispatcher.Register(domain.EventTaskDeleted, logging)

	if app.config.Redis.Enabled {
		client, err := redis.NewClient(ctx, app.config.Redis.Addr, app.config.Redis.Password, app.config.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client

		notifier := redis.NewNotifier(client, app.config.Redis.ChannelPrefix, app.logger)
		app.dispatcher.Register(domain.EventTaskStatusChanged, notifier)
		app.dispatcher.Register(domain.EventTaskDeleted, notifier)
		app.logger.Info("redis board notifications enabled",
			"channel_prefix", app.config.Redis.ChannelPrefix)
	}

	if app.config.Events.Async {
		app.async = events.NewAsyncPublisher(app.dispatcher, events.AsyncConfig{
			WorkerCount: app.config.Events.WorkerCount,
			QueueSize:   app.config.Events.QueueSize,
		}, app.logger)
		app.async.Start()
	}

	return nil
}

// Run serves the API until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Queued events
// are delivered before the connections they may need are closed.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if app.async != nil {
		if err := app.async.Stop(ctx); err != nil {
			app.logger.Error("error stopping event workers", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", redact.Error(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", redact.Error(err))
		}
	}

	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			app.logger.Error("error shutting down tracer provider", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
