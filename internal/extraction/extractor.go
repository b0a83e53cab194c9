package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/scanner"
)

const defaultConcurrency = 3

// Extractor runs the registered scanner of every source with bounded concurrency,
// then collapses duplicates in source order.
type Extractor struct {
	registry    *scanner.Registry
	dedup       *dedup.Deduplicator
	filter      scanner.Filter
	concurrency int
	logger      *slog.Logger
}

// NewExtractor wires the scanner registry with the shared deduplicator.
func NewExtractor(reg *scanner.Registry, d *dedup.Deduplicator, filter scanner.Filter, concurrency int, log *slog.Logger) *Extractor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if d == nil {
		d = dedup.NewDeduplicator(nil)
	}
	return &Extractor{
		registry:    reg,
		dedup:       d,
		filter:      filter,
		concurrency: concurrency,
		logger:      logging.Or(log).With("component", "extraction"),
	}
}

// Extract scans every source. A failing source is logged and counted, never fatal.
func (e *Extractor) Extract(ctx context.Context, sources []domain.Source) (domain.ExtractionResult, error) {
	if e.registry == nil {
		return domain.ExtractionResult{}, fmt.Errorf("scanner registry is not configured")
	}

	e.logger.Info("extraction started", "sources", len(sources), "concurrency", e.concurrency)

	perSource := make([][]domain.CodeSnippet, len(sources))
	var (
		mu     sync.Mutex
		failed int
	)
	fail := func(src domain.Source, err error) {
		e.logger.Warn("source skipped", "source", src.Name, "type", src.Type, "error", err)
		mu.Lock()
		failed++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			strategy, err := e.registry.Resolve(src.Type)
			if err != nil {
				fail(src, err)
				return nil
			}
			snippets, err := strategy.Scan(gctx, src, e.filter)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fail(src, err)
				return nil
			}
			perSource[i] = snippets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("extract: %w", err)
	}

	var all []domain.CodeSnippet
	for _, snippets := range perSource {
		all = append(all, snippets...)
	}

	unique, dropped, err := e.dedup.Dedupe(ctx, all)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("dedupe snippets: %w", err)
	}

	stats := domain.ExtractionStats{
		Sources:       len(sources),
		SourcesFailed: failed,
		Extracted:     len(all),
		Duplicates:    dropped,
		Unique:        len(unique),
		ByLanguage:    map[string]int{},
	}
	for _, s := range unique {
		stats.ByLanguage[s.Language]++
	}

	e.logger.Info("extraction done",
		"extracted", stats.Extracted,
		"unique", stats.Unique,
		"duplicates", stats.Duplicates,
		"sources_failed", stats.SourcesFailed)

	return domain.ExtractionResult{Snippets: unique, Stats: stats}, nil
}
