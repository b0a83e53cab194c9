package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

const defaultBatchSize = 50

// Options bound store write throughput. Retry applies to each batch write; Published,
// when set, records the snippet hash of every row that reached the store.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Retry      retry.Policy
	Published  ports.PublishedSet
}

// Publisher writes enriched posts to the store in batches.
type Publisher struct {
	store      ports.PostStore
	batchSize  int
	batchDelay time.Duration
	policy     retry.Policy
	published  ports.PublishedSet
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// NewPublisher wires the store.
func NewPublisher(store ports.PostStore, opts Options, log *slog.Logger) *Publisher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Default()
	}
	if opts.Retry.Retryable == nil {
		opts.Retry.Retryable = retry.IsTransient
	}
	return &Publisher{
		store:      store,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		policy:     opts.Retry,
		published:  opts.Published,
		logger:     logging.Or(log).With("component", "publishing"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// ToDatabasePost maps an enriched post to the persisted row. code_hash digests the raw code.
func ToDatabasePost(ep domain.EnrichedPost, now time.Time) domain.DatabasePost {
	updated := ep.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	return domain.DatabasePost{
		ID:                 ep.Post.ID,
		Title:              ep.Post.Title,
		Code:               ep.Post.Code,
		Language:           ep.Post.Language,
		Explanation:        ep.Post.Explanation,
		Tags:               ep.AllTags(),
		Difficulty:         ep.Post.Difficulty,
		Category:           ep.Post.Category,
		SourceURL:          ep.Post.SourceURL,
		SourceName:         ep.Post.SourceName,
		SourceType:         ep.Post.SourceType,
		QualityScore:       ep.QualityScore.Total,
		ReadingTimeSeconds: ep.ReadingTimeSeconds,
		Prerequisites:      ep.Prerequisites,
		CodeHash:           dedup.RawHash(ep.Post.Code),
		CreatedAt:          now,
		UpdatedAt:          updated,
	}
}

// Publish upserts posts batch by batch. Rows that already existed and repeats inside
// the run count as duplicates. Transient write errors are retried; a batch that still
// fails counts all its rows as failed and the remaining batches still run.
func (p *Publisher) Publish(ctx context.Context, posts []domain.EnrichedPost) (domain.PublishResult, error) {
	if p.store == nil {
		return domain.PublishResult{}, fmt.Errorf("post store is not configured")
	}

	now := p.now().UTC()
	var result domain.PublishResult
	rows := make([]domain.DatabasePost, 0, len(posts))
	keys := make([]string, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, ep := range posts {
		row := ToDatabasePost(ep, now)
		if seen[row.CodeHash] {
			result.Duplicates++
			continue
		}
		seen[row.CodeHash] = true
		if row.ID == "" {
			row.ID = p.newID()
		}
		rows = append(rows, row)
		keys = append(keys, snippetKey(ep.Post))
	}

	batches := 0
	for start := 0; start < len(rows); start += p.batchSize {
		if start > 0 {
			if err := retry.Pause(ctx, p.batchDelay); err != nil {
				return result, err
			}
		}
		end := min(start+p.batchSize, len(rows))
		batch := rows[start:end]
		batches++

		stats, err := retry.Value(ctx, p.policy, func(ctx context.Context) (ports.UpsertStats, error) {
			return p.store.UpsertBatch(ctx, batch)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Failed += len(batch)
			p.logger.Warn("batch write failed", "batch", batches, "size", len(batch), "error", err)
			continue
		}
		result.Published += stats.Inserted
		result.Duplicates += stats.Updated
		p.logger.Debug("batch written", "batch", batches, "inserted", stats.Inserted, "updated", stats.Updated)
		p.remember(ctx, keys[start:end])
	}

	p.logger.Info("publishing done", "published", result.Published, "duplicates", result.Duplicates, "failed", result.Failed)
	return result, nil
}

// remember marks written snippets so later extractions skip them. Failures are logged.
func (p *Publisher) remember(ctx context.Context, keys []string) {
	if p.published == nil || len(keys) == 0 {
		return
	}
	if err := p.published.Add(ctx, keys...); err != nil {
		p.logger.Warn("record published hashes failed", "count", len(keys), "error", err)
	}
}

func snippetKey(post domain.ProcessedPost) string {
	if post.SnippetHash != "" {
		return post.SnippetHash
	}
	return dedup.Hash(post.Code)
}
