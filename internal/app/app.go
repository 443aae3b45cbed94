package app

import (
	"context"
	"log/slog"
	"time"

	"FeedCurator/internal/config"
	"FeedCurator/internal/domain"
	"FeedCurator/internal/infrastructure/feed"
	"FeedCurator/internal/infrastructure/llm"
	"FeedCurator/internal/infrastructure/scheduler"
	"FeedCurator/internal/infrastructure/storage"
	"FeedCurator/internal/logging"
	"FeedCurator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Postgres
	pipeline *usecase.Pipeline
	trigger  *scheduler.Daily
}

// New connects the storage backend and builds the pipeline with all its
// adapters.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.DSN, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	fetcher := feed.NewFetcher(nil, cfg.Fetcher.Timeout(), baseLogger.With("component", "fetcher"))
	classifier := llm.NewClassifier(cfg.Classifier, baseLogger.With("component", "classifier"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:        store,
		Store:           store,
		Fetcher:         fetcher,
		Classifier:      classifier,
		Pacer:           usecase.NewPacer(cfg.Classifier.BatchDelay()),
		BatchSize:       cfg.Classifier.BatchSize,
		MaxItemsPerFeed: cfg.Fetcher.MaxItemsPerFeed,
		Logger:          baseLogger.With("component", "pipeline"),
	})

	trigger := scheduler.NewDaily(
		cfg.Scheduler.Hour,
		cfg.Scheduler.Minute,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		trigger:  trigger,
	}, nil
}

// RunOnce executes a single pipeline pass, optionally capped for
// controlled runs.
func (a *Application) RunOnce(ctx context.Context, opts domain.RunOptions) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.ProcessRun(ctx, now, opts)
}

// Run starts the daily trigger and blocks until the context is canceled.
func (a *Application) Run(ctx context.Context) error {
	job := func(trigger time.Time) {
		if err := a.pipeline.ProcessRun(ctx, trigger, domain.RunOptions{}); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	}

	if err := a.trigger.Start(ctx, job); err != nil {
		return err
	}

	<-ctx.Done()
	return a.trigger.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.store.Close()
}
