package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/catalog"
	"github.com/coding-vasu/devdose-sub000/internal/checkpoint"
	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/discovery"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/enrichment"
	"github.com/coding-vasu/devdose-sub000/internal/extraction"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/cache"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/docs"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/github"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/llm"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/scheduler"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/storage"
	"github.com/coding-vasu/devdose-sub000/internal/infrastructure/telegram"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/processing"
	"github.com/coding-vasu/devdose-sub000/internal/publishing"
	"github.com/coding-vasu/devdose-sub000/internal/quality"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
	"github.com/coding-vasu/devdose-sub000/internal/scanner"
	"github.com/coding-vasu/devdose-sub000/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	closers   []func() error
	published ports.PublishedSet
}

// New builds an application; adapters are created lazily per command.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, logger: baseLogger}
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run executes the whole pipeline once.
func (a *Application) Run(ctx context.Context) (usecase.Summary, error) {
	pipeline, err := a.pipeline(ctx, checkpoint.Order...)
	if err != nil {
		return usecase.Summary{}, err
	}
	return pipeline.RunAll(ctx)
}

// RunFrom resumes the pipeline at stage and runs through publishing.
func (a *Application) RunFrom(ctx context.Context, stage checkpoint.Stage) (usecase.Summary, error) {
	var stages []checkpoint.Stage
	for i, s := range checkpoint.Order {
		if s == stage {
			stages = checkpoint.Order[i:]
			break
		}
	}
	if stages == nil {
		return usecase.Summary{}, fmt.Errorf("unknown stage %q", stage)
	}
	pipeline, err := a.pipeline(ctx, stages...)
	if err != nil {
		return usecase.Summary{}, err
	}
	return pipeline.RunFrom(ctx, stage)
}

// RunStage executes one stage from the previous stage's checkpoint.
func (a *Application) RunStage(ctx context.Context, stage checkpoint.Stage) (usecase.Summary, error) {
	pipeline, err := a.pipeline(ctx, stage)
	if err != nil {
		return usecase.Summary{}, err
	}
	return pipeline.RunStage(ctx, stage)
}

// Verify re-checks published posts through the completion model.
func (a *Application) Verify(ctx context.Context, opts usecase.VerifyOptions) (usecase.VerifyReport, error) {
	if err := a.cfg.RequireLLM(); err != nil {
		return usecase.VerifyReport{}, err
	}
	store, err := a.Store(ctx)
	if err != nil {
		return usecase.VerifyReport{}, err
	}
	processor, err := a.processor(ctx)
	if err != nil {
		return usecase.VerifyReport{}, err
	}
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Processor: processor,
		Store:     store,
		Logger:    a.logger,
	})
	return pipeline.Verify(ctx, opts)
}

// Schedule runs the pipeline every configured interval until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	pipeline, err := a.pipeline(ctx, checkpoint.Order...)
	if err != nil {
		return err
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location(), a.logger)
	sched := usecase.NewScheduler(driver, pipeline, a.logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Migrate creates the published store schema.
func (a *Application) Migrate(ctx context.Context) error {
	store, err := a.Store(ctx)
	if err != nil {
		return err
	}
	return store.Migrate(ctx)
}

// Store opens the configured post repository.
func (a *Application) Store(ctx context.Context) (*storage.PostRepository, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	dialect, err := storage.ParseDialect(a.cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return storage.NewPostRepository(db, dialect), nil
}

// pipeline builds only the adapters the requested stages need and fails fast on
// missing credentials.
func (a *Application) pipeline(ctx context.Context, stages ...checkpoint.Stage) (*usecase.Pipeline, error) {
	checkpoints, err := checkpoint.NewStore(a.cfg.Checkpoints.Dir)
	if err != nil {
		return nil, err
	}
	deps := usecase.PipelineDeps{Checkpoints: checkpoints, Logger: a.logger}

	need := map[checkpoint.Stage]bool{}
	for _, s := range stages {
		need[s] = true
	}

	if need[checkpoint.StageDiscovery] || need[checkpoint.StageExtraction] {
		if err := a.cfg.RequireGitHub(); err != nil {
			return nil, err
		}
		host := github.NewClient(a.cfg.GitHub.APIURL, a.cfg.GitHub.Token, a.cfg.GitHub.Timeout)
		if need[checkpoint.StageDiscovery] {
			curated := catalog.Merge(a.cfg.Sources)
			deps.Discoverer = discovery.NewDiscoverer(host, curated, a.cfg.Discovery, policyFrom(a.cfg.GitHub.Retry), a.logger)
		}
		if need[checkpoint.StageExtraction] {
			extractor, err := a.extractor(ctx, host)
			if err != nil {
				return nil, err
			}
			deps.Extractor = extractor
		}
	}

	if need[checkpoint.StageProcessing] {
		if err := a.cfg.RequireLLM(); err != nil {
			return nil, err
		}
		processor, err := a.processor(ctx)
		if err != nil {
			return nil, err
		}
		deps.Processor = processor
	}

	if need[checkpoint.StageScoring] {
		rep := quality.Reputation{
			Official:  catalog.Names(catalog.Merge(a.cfg.Sources)),
			Secondary: quality.DefaultSecondary,
		}
		th := quality.Thresholds{
			AutoApprove:  a.cfg.Quality.AutoApproveThreshold,
			ManualReview: a.cfg.Quality.ManualReviewThreshold,
		}
		deps.Scorer = quality.NewScorer(rep, th, a.logger)
	}

	if need[checkpoint.StageEnrichment] {
		deps.Enricher = enrichment.NewEnricher(a.logger)
	}

	if need[checkpoint.StagePublishing] {
		store, err := a.Store(ctx)
		if err != nil {
			return nil, err
		}
		published, err := a.publishedSet(ctx)
		if err != nil {
			return nil, err
		}
		deps.Store = store
		deps.Publisher = publishing.NewPublisher(store, publishing.Options{
			BatchSize:  a.cfg.Publishing.BatchSize,
			BatchDelay: a.cfg.Publishing.BatchDelay,
			Retry:      policyFrom(a.cfg.Publishing.Retry),
			Published:  published,
		}, a.logger)
	}

	if n := telegram.NewNotifier(a.cfg.Notifications.Telegram, a.logger); n.Enabled() {
		deps.Notifier = n
	}

	return usecase.NewPipeline(deps), nil
}

// policyFrom overlays the configured bounds on retry.Default.
func policyFrom(rc config.RetryConfig) retry.Policy {
	p := retry.Default()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelay > 0 {
		p.BaseDelay = rc.BaseDelay
	}
	if rc.MaxDelay > 0 {
		p.MaxDelay = rc.MaxDelay
	}
	return p
}

func (a *Application) extractor(ctx context.Context, host ports.CodeHost) (*extraction.Extractor, error) {
	published, err := a.publishedSet(ctx)
	if err != nil {
		return nil, err
	}

	registry := scanner.NewRegistry()
	registry.Register(
		extraction.NewRepositoryScanner(host, policyFrom(a.cfg.GitHub.Retry), a.cfg.Extraction.MaxExampleFiles, a.logger),
		domain.SourceGitHub, domain.SourceAwesome,
	)
	registry.Register(
		docs.NewScraper(&http.Client{Timeout: a.cfg.Docs.Timeout}, docs.Options{
			CacheDir: a.cfg.Docs.CacheDir,
			CacheTTL: a.cfg.Docs.CacheTTL,
			MinDelay: a.cfg.Docs.MinDelay,
			Policy:   policyFrom(a.cfg.Docs.Retry),
		}, a.logger),
		domain.SourceDocs, domain.SourceBlog,
	)

	filter := scanner.Filter{
		MinLines:  a.cfg.Extraction.MinCodeLines,
		MaxLines:  a.cfg.Extraction.MaxCodeLines,
		Languages: a.cfg.Extraction.Languages,
	}
	return extraction.NewExtractor(registry, dedup.NewDeduplicator(published), filter, a.cfg.Extraction.Concurrency, a.logger), nil
}

// publishedSet returns the history of published snippet hashes, shared by
// extraction (read) and publishing (write). The memory backend lives as long
// as the process, so it only spans scheduled runs.
func (a *Application) publishedSet(ctx context.Context) (ports.PublishedSet, error) {
	if a.published != nil {
		return a.published, nil
	}
	switch strings.ToLower(a.cfg.Dedup.Backend) {
	case "", "memory":
		a.published = dedup.NewMemorySet()
	case "redis":
		client, err := cache.Dial(ctx, a.cfg.Dedup.RedisAddr, a.cfg.Dedup.RedisPassword, a.cfg.Dedup.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.published = cache.NewRedisSeenSet(client, a.cfg.Dedup.RedisKey)
	default:
		return nil, fmt.Errorf("config: unknown dedup backend %q", a.cfg.Dedup.Backend)
	}
	return a.published, nil
}

func (a *Application) processor(ctx context.Context) (*processing.Processor, error) {
	completer, err := llm.New(ctx, a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build completer: %w", err)
	}
	return processing.NewProcessor(completer, processing.Options{
		Policy:     policyFrom(config.RetryConfig{MaxAttempts: a.cfg.Processing.MaxRetries, BaseDelay: a.cfg.Processing.BaseDelay}),
		BatchSize:  a.cfg.Processing.BatchSize,
		BatchDelay: a.cfg.Processing.BatchDelay,
	}, a.logger), nil
}
