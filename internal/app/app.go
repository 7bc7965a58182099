package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paperdigest/internal/config"
	"paperdigest/internal/domain"
	"paperdigest/internal/infrastructure/arxiv"
	"paperdigest/internal/infrastructure/email"
	"paperdigest/internal/infrastructure/huggingface"
	"paperdigest/internal/infrastructure/llm"
	"paperdigest/internal/infrastructure/scheduler"
	"paperdigest/internal/infrastructure/semanticscholar"
	"paperdigest/internal/infrastructure/storage"
	"paperdigest/internal/logging"
	"paperdigest/internal/ranker"
	"paperdigest/internal/source"
	"paperdigest/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	generator *usecase.Generator
	scheduler *usecase.Scheduler
	memory    *storage.MemoryRepo
	sender    *email.SMTPSender
	sentState *email.SentState
}

// New builds a runnable application instance or fails with a ConfigError.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewDigestStore(cfg.Storage.DigestDir, baseLogger.With("component", "storage.digest"))
	if err != nil {
		return nil, err
	}

	var memory *storage.MemoryRepo
	if cfg.Digest.ExcludeSeen {
		memory, err = storage.OpenMemoryRepo(cfg.Storage.MemoryDBPath)
		if err != nil {
			return nil, err
		}
	}

	backend, err := llm.NewBackend(cfg.LLM)
	if err != nil {
		return nil, err
	}

	registry := source.NewRegistry()
	timeout := cfg.Digest.SourceTimeout
	registry.Register(arxiv.NewClient("", timeout, baseLogger.With("component", "source.arxiv")))
	registry.Register(arxiv.NewListingScanner("", timeout, baseLogger.With("component", "source.arxiv-listing")))
	registry.Register(huggingface.NewClient("", timeout, baseLogger.With("component", "source.huggingface")))
	registry.Register(semanticscholar.NewClient("", cfg.Digest.SemanticScholarAPIKey, timeout,
		baseLogger.With("component", "source.semantic_scholar")))

	rnk := ranker.New(backend, cfg.Digest.BatchSize, cfg.Digest.BatchDelay,
		baseLogger.With("component", "ranker", "backend", backend.Name()))

	generatorDeps := usecase.GeneratorDeps{
		Registry: registry,
		Ranker:   rnk,
		Store:    store,
		Logger:   baseLogger.With("component", "generator"),
	}
	if memory != nil {
		generatorDeps.Memory = memory
	}
	generator := usecase.NewGenerator(generatorDeps)

	app := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		generator: generator,
		memory:    memory,
	}

	if cfg.Email.Enabled {
		app.sender = email.NewSMTPSender(cfg.Email)
		app.sentState, err = email.NewSentState(cfg.Email.SentStatePath)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewDailyScheduler(cfg.Scheduler.Hour, cfg.Scheduler.Location(),
			baseLogger.With("component", "scheduler"))
		app.scheduler = usecase.NewScheduler(driver, generator, cfg.Digest, app.handleResult)
	}

	return app, nil
}

// Run performs a single generation, or blocks driving the daily scheduler
// when scheduling is enabled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.scheduler == nil {
		result := a.generator.Generate(ctx, a.cfg.Digest, usecase.Options{})
		a.handleResult(ctx, result)
		if result.Status == domain.StatusFailed {
			return fmt.Errorf("digest generation failed: %w", result.Err)
		}
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// handleResult branches on the generation outcome: completed digests are
// mailed, partial ones only when configured, failed runs never.
func (a *Application) handleResult(ctx context.Context, result domain.GenerationResult) {
	switch result.Status {
	case domain.StatusFailed:
		a.logger.Error("generation failed", "run_id", result.RunID, "error", result.Err)
		return
	case domain.StatusPartialFailure:
		a.logger.Warn("generation completed with failures",
			"run_id", result.RunID, "failures", len(result.Failures))
		if a.sender == nil || !a.cfg.Email.SendOnPartial {
			return
		}
	case domain.StatusCompleted:
		if a.sender == nil {
			return
		}
	}

	digest := result.Digest
	if digest == nil || len(digest.Papers) == 0 {
		return
	}

	digestID := email.ComputeDigestID(digest.Date, a.cfg.Email.Recipients, a.cfg.Email.Subject)
	if a.sentState.AlreadySent(digestID) {
		a.logger.Info("digest already sent, skipping email", "date", digest.Date)
		return
	}

	subject := email.Subject(a.cfg.Email.Subject, digest.Date)
	if err := a.sender.Send(ctx, subject, email.RenderText(digest), email.RenderHTML(digest)); err != nil {
		a.logger.Error("cannot send digest email", "date", digest.Date, "error", err)
		return
	}
	if err := a.sentState.MarkSent(digestID); err != nil {
		a.logger.Warn("cannot mark digest as sent", "date", digest.Date, "error", err)
	}
	a.logger.Info("digest email sent", "date", digest.Date, "recipients", len(a.cfg.Email.Recipients))
}

func (a *Application) close() {
	if a.memory != nil {
		if err := a.memory.Close(); err != nil {
			a.logger.Warn("cannot close paper memory", "error", err)
		}
	}
}
