package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

const defaultBatchSize = 5

// Retryable treats invalid model output like a transient failure: one more completion may fix it.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrInvalidOutput) || retry.IsTransient(err)
}

// Options configure batching and retries.
type Options struct {
	Policy     retry.Policy
	BatchSize  int
	BatchDelay time.Duration
}

// Processor turns snippets into validated posts through the completion model.
type Processor struct {
	completer  ports.Completer
	policy     retry.Policy
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// NewProcessor wires the completer. The policy's classifier is replaced by Retryable.
func NewProcessor(completer ports.Completer, opts Options, log *slog.Logger) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	policy := opts.Policy
	policy.Retryable = Retryable
	return &Processor{
		completer:  completer,
		policy:     policy,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		logger:     logging.Or(log).With("component", "processing"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Process runs snippets in fixed-size batches; completions inside a batch run concurrently.
// A snippet whose retries are exhausted is dropped and counted as failed.
func (p *Processor) Process(ctx context.Context, snippets []domain.CodeSnippet) (domain.ProcessingResult, error) {
	if p.completer == nil {
		return domain.ProcessingResult{}, fmt.Errorf("completer is not configured")
	}

	stats := domain.ProcessingStats{Total: len(snippets)}
	posts := make([]domain.ProcessedPost, 0, len(snippets))

	for start := 0; start < len(snippets); start += p.batchSize {
		if start > 0 {
			if err := retry.Pause(ctx, p.batchDelay); err != nil {
				return domain.ProcessingResult{}, err
			}
		}
		end := min(start+p.batchSize, len(snippets))
		batch := snippets[start:end]
		stats.Batches++

		results := make([]*domain.ProcessedPost, len(batch))
		var g errgroup.Group
		for i, snippet := range batch {
			g.Go(func() error {
				post, err := p.processOne(ctx, snippet)
				if err != nil {
					p.logger.Warn("snippet dropped", "hash", snippet.Hash, "source", snippet.Metadata.SourceName, "error", err)
					return nil
				}
				results[i] = &post
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return domain.ProcessingResult{}, err
		}

		for _, post := range results {
			if post == nil {
				stats.Failed++
				continue
			}
			posts = append(posts, *post)
			stats.Succeeded++
		}
		p.logger.Debug("batch processed", "batch", stats.Batches, "size", len(batch), "succeeded", stats.Succeeded)
	}

	p.logger.Info("processing done", "total", stats.Total, "succeeded", stats.Succeeded, "failed", stats.Failed)
	return domain.ProcessingResult{Posts: posts, Stats: stats}, nil
}

func (p *Processor) processOne(ctx context.Context, snippet domain.CodeSnippet) (domain.ProcessedPost, error) {
	user := UserPrompt(InputFromSnippet(snippet))
	out, err := p.complete(ctx, SystemPrompt, user)
	if err != nil {
		return domain.ProcessedPost{}, err
	}
	return domain.ProcessedPost{
		ID:           p.newID(),
		Title:        out.Title,
		Explanation:  out.Explanation,
		Difficulty:   out.Difficulty,
		Category:     out.Category,
		Tags:         out.Tags,
		QualityScore: out.QualityScore,
		Code:         snippet.Code,
		Language:     snippet.Language,
		SourceName:   snippet.Metadata.SourceName,
		SourceURL:    snippet.Metadata.SourceURL,
		SourceType:   snippet.Metadata.SourceType,
		SnippetHash:  snippet.Hash,
		ProcessedAt:  p.now().UTC(),
	}, nil
}

func (p *Processor) complete(ctx context.Context, system, user string) (domain.ProcessingOutput, error) {
	return retry.Value(ctx, p.policy, func(ctx context.Context) (domain.ProcessingOutput, error) {
		text, err := p.completer.Complete(ctx, system, user)
		if err != nil {
			return domain.ProcessingOutput{}, err
		}
		return ParseOutput(text)
	})
}

// VerifyResult is the outcome of re-checking one published post.
type VerifyResult struct {
	Original domain.DatabasePost
	Post     domain.DatabasePost
	Changed  bool
	Fields   []string
}

// Verify re-runs a published post through the model with a correction prompt.
// Changed is set when the title, the explanation or the code differ from the original.
func (p *Processor) Verify(ctx context.Context, post domain.DatabasePost) (VerifyResult, error) {
	if p.completer == nil {
		return VerifyResult{}, fmt.Errorf("completer is not configured")
	}
	out, err := p.complete(ctx, VerifySystemPrompt, VerifyPrompt(post))
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify post %s: %w", post.ID, err)
	}

	updated := post
	updated.Title = out.Title
	updated.Explanation = out.Explanation
	updated.Difficulty = out.Difficulty
	updated.Category = out.Category
	updated.Tags = domain.MergeTags(out.Tags, post.Tags)

	var fields []string
	if updated.Title != post.Title {
		fields = append(fields, "title")
	}
	if updated.Explanation != post.Explanation {
		fields = append(fields, "explanation")
	}
	if code := strings.TrimSpace(out.Code); code != "" && code != strings.TrimSpace(post.Code) {
		updated.Code = out.Code
		updated.CodeHash = dedup.RawHash(out.Code)
		fields = append(fields, "code")
	}
	if len(fields) > 0 {
		updated.UpdatedAt = p.now().UTC()
	}

	p.logger.Debug("post verified", "id", post.ID, "changed", fields)
	return VerifyResult{Original: post, Post: updated, Changed: len(fields) > 0, Fields: fields}, nil
}
