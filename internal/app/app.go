package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"SignalScanner/internal/config"
	"SignalScanner/internal/domain"
	"SignalScanner/internal/infrastructure/contentstore"
	"SignalScanner/internal/infrastructure/httpapi"
	"SignalScanner/internal/infrastructure/llm"
	"SignalScanner/internal/infrastructure/sources"
	"SignalScanner/internal/infrastructure/statestore"
	"SignalScanner/internal/infrastructure/storage"
	"SignalScanner/internal/logging"
	"SignalScanner/internal/ports"
	"SignalScanner/internal/scanner"
	"SignalScanner/internal/usecase"
)

const (
	publishWriteDelay     = 250 * time.Millisecond
	serverShutdownTimeout = 5 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	states    *statestore.Store
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	api       *httpapi.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	states, err := statestore.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(sources.NewArxivFetcher(nil, baseLogger.With("component", "source.arxiv")))
	registry.Register(sources.NewHackerNewsFetcher(nil, baseLogger.With("component", "source.hn")))
	registry.Register(sources.NewBlogFetcher(nil, baseLogger.With("component", "source.blog")))
	aggregator := sources.NewAggregator(registry, baseLogger.With("component", "aggregator"))

	repository := storage.NewPostgresRepository(db, baseLogger.With("component", "storage"))
	content := contentstore.NewClient(cfg.ContentAPI.BaseURL, cfg.ContentAPI.APIKey)

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	publisher := usecase.NewPublisher(usecase.PublisherDeps{
		Content:    content,
		Identity:   content,
		Chat:       chatClient,
		Logger:     baseLogger.With("component", "publisher"),
		Category:   cfg.ContentAPI.Category,
		WriteDelay: publishWriteDelay,
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:         aggregator,
		Repository:     repository,
		Publisher:      publisher,
		Logger:         baseLogger.With("component", "pipeline"),
		MaxItemsPerRun: cfg.Sources.MaxItemsPerRun,
	})

	sourceDefaults := cfg.Sources.Domain()
	mode := cfg.Sources.PublishMode()
	runner := func(ctx context.Context) (domain.RunResult, error) {
		return pipeline.Run(ctx, sourceDefaults, mode)
	}

	scheduler := usecase.NewScheduler(cfg.Schedule.Domain(), states, runner,
		baseLogger.With("component", "scheduler"))

	api := httpapi.NewServer(scheduler, pipeline, sourceDefaults, mode,
		baseLogger.With("component", "api"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		states:    states,
		pipeline:  pipeline,
		scheduler: scheduler,
		api:       api,
	}, nil
}

// Serve runs the resident scheduler and the admin API until the context
// is cancelled, then drains in-flight admin requests before returning.
func (a *Application) Serve(ctx context.Context) error {
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop(context.Background())

	server := &http.Server{Addr: a.cfg.API.Addr, Handler: a.api.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("signalscanner serving", "addr", a.cfg.API.Addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("admin api shutdown", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin api: %w", err)
	}
}

// RunOnce executes one full pipeline run with the configured defaults.
func (a *Application) RunOnce(ctx context.Context) (domain.RunResult, error) {
	return a.pipeline.Run(ctx, a.cfg.Sources.Domain(), a.cfg.Sources.PublishMode())
}

// Prepare snapshots candidates without publishing.
func (a *Application) Prepare(ctx context.Context) ([]domain.ScoredSignal, []string) {
	return a.pipeline.Prepare(ctx, a.cfg.Sources.Domain())
}

// PublishPending commits previously snapshotted candidates.
func (a *Application) PublishPending(ctx context.Context, limit int) (domain.RunResult, error) {
	return a.pipeline.PublishPending(ctx, limit, a.cfg.Sources.PublishMode())
}

// Generate runs the synthetic-topic path.
func (a *Application) Generate(ctx context.Context, topics int) (domain.RunResult, error) {
	if topics <= 0 {
		topics = a.cfg.ChatGPT.TopicsPerRun
	}
	return a.pipeline.Generate(ctx, topics)
}

// Status reports the scheduler state.
func (a *Application) Status() domain.ScheduleStatus {
	return a.scheduler.Status()
}

// Close releases the database handles.
func (a *Application) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.states != nil {
		_ = a.states.Close()
	}
}
