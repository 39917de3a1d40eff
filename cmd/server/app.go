package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/lexis/internal/api"
	"github.com/phrazzld/lexis/internal/config"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/domain/srs"
	"github.com/phrazzld/lexis/internal/platform/memory"
	"github.com/phrazzld/lexis/internal/platform/postgres"
	"github.com/phrazzld/lexis/internal/service/auth"
	"github.com/phrazzld/lexis/internal/service/progress"
	"github.com/phrazzld/lexis/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	words    progress.WordRepository
	progress progress.ProgressRepository
	putWord  func(ctx context.Context, w *domain.Word) error

	srsService srs.Service
	aggregator *progress.Aggregator
	scheduler  progress.ReviewScheduler
	tokens     auth.TokenService

	// Set only when topic refreshes run on background workers.
	refreshQueue *task.TaskQueue
	workerPool   *task.WorkerPool
}

// newApplication wires stores, engine and services. A nil db runs the
// engine on the in-memory store.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if db != nil {
		words := postgres.NewPostgresWordStore(db, logger)
		app.words = words
		app.progress = postgres.NewPostgresProgressStore(db, logger)
		app.putWord = words.PutWord
		logger.Info("using postgres stores")
	} else {
		st := memory.NewStore()
		app.words = st
		app.progress = st
		app.putWord = func(_ context.Context, w *domain.Word) error { return st.PutWord(w) }
		logger.Warn("no database configured, progress is kept in memory only")
	}

	model, err := srs.NewDecayModel(cfg.Engine.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to select decay model: %w", err)
	}
	app.srsService, err = srs.NewService(srs.NewParams(cfg.Engine.SRSParams()), model)
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	app.aggregator = progress.NewAggregator(app.words, app.progress, nil, cfg.Engine.StoreTimeout, logger)

	var refresher progress.TopicRefresher = app.aggregator
	if cfg.Engine.AsyncTopicRefresh {
		app.refreshQueue = task.NewTaskQueue(cfg.Engine.RefreshQueueSize, logger)
		app.workerPool = task.NewWorkerPool(app.refreshQueue, task.WorkerPoolConfig{
			WorkerCount: cfg.Engine.RefreshWorkers,
		}, logger)
		app.workerPool.Start()
		refresher = task.NewRefreshDispatcher(app.refreshQueue, app.aggregator, cfg.Engine.StoreTimeout, logger)
	}

	opts := progress.DefaultOptions()
	opts.StoreTimeout = cfg.Engine.StoreTimeout
	opts.LockShards = cfg.Engine.LockShards
	opts.XP = progress.XPRules{
		PerCorrect:   cfg.Engine.XPPerCorrect,
		PerIncorrect: cfg.Engine.XPPerIncorrect,
		MasteryBonus: cfg.Engine.XPMasteryBonus,
	}
	app.scheduler = progress.NewScheduler(app.words, app.progress, app.srsService, refresher, logger, opts)

	logger.Info("application initialized",
		slog.String("algorithm", app.srsService.Model().Name()),
		slog.Bool("async_topic_refresh", cfg.Engine.AsyncTopicRefresh))
	return app, nil
}

// router builds the HTTP handler for the application.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Scheduler: app.scheduler,
		Tokens:    app.tokens,
		Logger:    app.logger,
	})
}

// Run serves HTTP until ctx is canceled and then releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()
	if err := app.startHTTPServer(ctx, app.router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background workers and closes the database.
func (app *application) cleanup() {
	if app.refreshQueue != nil {
		app.refreshQueue.Close()
	}
	if app.workerPool != nil {
		app.workerPool.Stop()
	}
	closeDB(app.db, app.logger)
	app.logger.Info("application shutdown completed")
}
