package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/checkpoint"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/processing"
)

// Discoverer produces the source list.
type Discoverer interface {
	Discover(ctx context.Context) (domain.DiscoveryResult, error)
}

// Extractor turns sources into unique snippets.
type Extractor interface {
	Extract(ctx context.Context, sources []domain.Source) (domain.ExtractionResult, error)
}

// Processor rewrites snippets into posts and re-checks published ones.
type Processor interface {
	Process(ctx context.Context, snippets []domain.CodeSnippet) (domain.ProcessingResult, error)
	Verify(ctx context.Context, post domain.DatabasePost) (processing.VerifyResult, error)
}

// Scorer classifies posts into approval tiers.
type Scorer interface {
	Score(posts []domain.ProcessedPost) domain.ScoringResult
}

// Enricher derives metadata for approved posts.
type Enricher interface {
	Enrich(posts []domain.ScoredPost) domain.EnrichmentResult
}

// Publisher writes enriched posts to the store.
type Publisher interface {
	Publish(ctx context.Context, posts []domain.EnrichedPost) (domain.PublishResult, error)
}

// PipelineDeps wires the stages, the checkpoint store and driven adapters.
type PipelineDeps struct {
	Discoverer  Discoverer
	Extractor   Extractor
	Processor   Processor
	Scorer      Scorer
	Enricher    Enricher
	Publisher   Publisher
	Checkpoints *checkpoint.Store
	Store       ports.PostStore
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

// Pipeline runs the six stages in order, persisting each result before the next starts.
type Pipeline struct {
	discoverer  Discoverer
	extractor   Extractor
	processor   Processor
	scorer      Scorer
	enricher    Enricher
	publisher   Publisher
	checkpoints *checkpoint.Store
	store       ports.PostStore
	notifier    ports.Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		discoverer:  deps.Discoverer,
		extractor:   deps.Extractor,
		processor:   deps.Processor,
		scorer:      deps.Scorer,
		enricher:    deps.Enricher,
		publisher:   deps.Publisher,
		checkpoints: deps.Checkpoints,
		store:       deps.Store,
		notifier:    deps.Notifier,
		logger:      logging.Or(deps.Logger).With("component", "pipeline"),
		now:         time.Now,
	}
}

// Summary aggregates the statistics of the stages that ran.
type Summary struct {
	Stages     []checkpoint.Stage
	Discovery  *domain.DiscoveryStats
	Extraction *domain.ExtractionStats
	Processing *domain.ProcessingStats
	Scoring    *domain.ScoringStats
	Enrichment *domain.EnrichmentStats
	Publishing *domain.PublishResult
	Elapsed    time.Duration
}

// RunAll executes every stage. A failing stage aborts the run; later stages do not start.
func (p *Pipeline) RunAll(ctx context.Context) (Summary, error) {
	return p.RunFrom(ctx, checkpoint.StageDiscovery)
}

// RunFrom resumes at stage using the previous stage's checkpoint and runs through publishing.
func (p *Pipeline) RunFrom(ctx context.Context, from checkpoint.Stage) (Summary, error) {
	started := p.now()
	var sum Summary

	running := false
	for _, stage := range checkpoint.Order {
		if stage == from {
			running = true
		}
		if !running {
			continue
		}
		if err := p.runStage(ctx, stage, &sum); err != nil {
			sum.Elapsed = p.now().Sub(started)
			p.logger.Error("pipeline aborted", "stage", stage, "error", err)
			return sum, err
		}
	}
	if !running {
		return sum, fmt.Errorf("unknown stage %q", from)
	}

	sum.Elapsed = p.now().Sub(started)
	p.logger.Info("pipeline finished", "stages", len(sum.Stages), "elapsed", sum.Elapsed)
	p.notify(ctx, sum)
	return sum, nil
}

// RunStage executes a single stage against the latest checkpoint of its predecessor.
func (p *Pipeline) RunStage(ctx context.Context, stage checkpoint.Stage) (Summary, error) {
	started := p.now()
	var sum Summary
	err := p.runStage(ctx, stage, &sum)
	if prev, ok := stage.Previous(); ok && errors.Is(err, checkpoint.ErrMissing) {
		err = fmt.Errorf("%w: run %s first", err, prev)
	}
	sum.Elapsed = p.now().Sub(started)
	return sum, err
}

func (p *Pipeline) runStage(ctx context.Context, stage checkpoint.Stage, sum *Summary) error {
	if p.checkpoints == nil {
		return errors.New("checkpoint store is not configured")
	}

	started := p.now()
	var err error
	switch stage {
	case checkpoint.StageDiscovery:
		err = p.discover(ctx, sum)
	case checkpoint.StageExtraction:
		err = p.extract(ctx, sum)
	case checkpoint.StageProcessing:
		err = p.process(ctx, sum)
	case checkpoint.StageScoring:
		err = p.score(sum)
	case checkpoint.StageEnrichment:
		err = p.enrich(sum)
	case checkpoint.StagePublishing:
		err = p.publish(ctx, sum)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}

	sum.Stages = append(sum.Stages, stage)
	p.logger.Info("stage complete", "stage", stage, "elapsed", p.now().Sub(started))
	return nil
}

func (p *Pipeline) discover(ctx context.Context, sum *Summary) error {
	if p.discoverer == nil {
		return errors.New("discoverer is not configured")
	}
	out, err := p.discoverer.Discover(ctx)
	if err != nil {
		return err
	}
	if err := checkpoint.Save(p.checkpoints, checkpoint.StageDiscovery, out); err != nil {
		return err
	}
	sum.Discovery = &out.Stats
	return nil
}

func (p *Pipeline) extract(ctx context.Context, sum *Summary) error {
	if p.extractor == nil {
		return errors.New("extractor is not configured")
	}
	in, err := checkpoint.Load[domain.DiscoveryResult](p.checkpoints, checkpoint.StageDiscovery)
	if err != nil {
		return err
	}
	out, err := p.extractor.Extract(ctx, in.Sources)
	if err != nil {
		return err
	}
	if err := checkpoint.Save(p.checkpoints, checkpoint.StageExtraction, out); err != nil {
		return err
	}
	sum.Extraction = &out.Stats
	return nil
}

func (p *Pipeline) process(ctx context.Context, sum *Summary) error {
	if p.processor == nil {
		return errors.New("processor is not configured")
	}
	in, err := checkpoint.Load[domain.ExtractionResult](p.checkpoints, checkpoint.StageExtraction)
	if err != nil {
		return err
	}
	out, err := p.processor.Process(ctx, in.Snippets)
	if err != nil {
		return err
	}
	if err := checkpoint.Save(p.checkpoints, checkpoint.StageProcessing, out); err != nil {
		return err
	}
	sum.Processing = &out.Stats
	return nil
}

func (p *Pipeline) score(sum *Summary) error {
	if p.scorer == nil {
		return errors.New("scorer is not configured")
	}
	in, err := checkpoint.Load[domain.ProcessingResult](p.checkpoints, checkpoint.StageProcessing)
	if err != nil {
		return err
	}
	out := p.scorer.Score(in.Posts)
	if err := checkpoint.Save(p.checkpoints, checkpoint.StageScoring, out); err != nil {
		return err
	}
	sum.Scoring = &out.Stats
	return nil
}

func (p *Pipeline) enrich(sum *Summary) error {
	if p.enricher == nil {
		return errors.New("enricher is not configured")
	}
	in, err := checkpoint.Load[domain.ScoringResult](p.checkpoints, checkpoint.StageScoring)
	if err != nil {
		return err
	}
	out := p.enricher.Enrich(in.Approved())
	if err := checkpoint.Save(p.checkpoints, checkpoint.StageEnrichment, out); err != nil {
		return err
	}
	sum.Enrichment = &out.Stats
	return nil
}

func (p *Pipeline) publish(ctx context.Context, sum *Summary) error {
	if p.publisher == nil {
		return errors.New("publisher is not configured")
	}
	in, err := checkpoint.Load[domain.EnrichmentResult](p.checkpoints, checkpoint.StageEnrichment)
	if err != nil {
		return err
	}
	out, err := p.publisher.Publish(ctx, in.Posts)
	if err != nil {
		return err
	}
	if err := checkpoint.Save(p.checkpoints, checkpoint.StagePublishing, out); err != nil {
		return err
	}
	sum.Publishing = &out
	return nil
}

func (p *Pipeline) notify(ctx context.Context, sum Summary) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSummary(ctx, sum.Message()); err != nil {
		p.logger.Warn("summary notification failed", "error", err)
	}
}

// VerifyOptions bound a verification sweep over published posts.
type VerifyOptions struct {
	PageSize int
	Limit    int
	DryRun   bool
	Filter   ports.PostFilter
}

// VerifyReport counts the outcome of a verification sweep.
type VerifyReport struct {
	Checked int
	Changed int
	Failed  int
}

// Verify pages through published posts, asks the model to correct each one and rewrites
// rows whose content changed. Per-post failures are counted, not fatal.
func (p *Pipeline) Verify(ctx context.Context, opts VerifyOptions) (VerifyReport, error) {
	if p.store == nil {
		return VerifyReport{}, errors.New("post store is not configured")
	}
	if p.processor == nil {
		return VerifyReport{}, errors.New("processor is not configured")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}

	var report VerifyReport
	filter := opts.Filter
	filter.Limit = opts.PageSize
	filter.Offset = 0

	for {
		posts, total, err := p.store.List(ctx, filter)
		if err != nil {
			return report, fmt.Errorf("list posts: %w", err)
		}

		for _, post := range posts {
			if opts.Limit > 0 && report.Checked >= opts.Limit {
				return report, nil
			}
			report.Checked++

			res, err := p.processor.Verify(ctx, post)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				report.Failed++
				p.logger.Warn("verification failed", "id", post.ID, "error", err)
				continue
			}
			if !res.Changed {
				continue
			}
			report.Changed++
			p.logger.Info("post corrected", "id", post.ID, "fields", strings.Join(res.Fields, ","), "dry_run", opts.DryRun)
			if opts.DryRun {
				continue
			}
			if err := p.store.Replace(ctx, res.Original.CodeHash, res.Post); err != nil {
				report.Failed++
				p.logger.Warn("replace failed", "id", post.ID, "error", err)
			}
		}

		filter.Offset += len(posts)
		if len(posts) == 0 || filter.Offset >= total {
			break
		}
	}

	p.logger.Info("verification done", "checked", report.Checked, "changed", report.Changed, "failed", report.Failed)
	return report, nil
}
