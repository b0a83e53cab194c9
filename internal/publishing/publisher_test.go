package publishing

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

type memoryStore struct {
	mu      sync.Mutex
	rows    map[string]domain.DatabasePost
	calls   int
	failOn  int
	// failFirst makes the first calls return failErr.
	failFirst int
	failErr   error
	batches [][]domain.DatabasePost
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]domain.DatabasePost{}}
}

func (m *memoryStore) UpsertBatch(_ context.Context, posts []domain.DatabasePost) (ports.UpsertStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, posts)
	if m.calls == m.failOn {
		return ports.UpsertStats{}, errors.New("connection reset")
	}
	if m.calls <= m.failFirst {
		return ports.UpsertStats{}, m.failErr
	}
	var stats ports.UpsertStats
	for _, p := range posts {
		if _, ok := m.rows[p.CodeHash]; ok {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		m.rows[p.CodeHash] = p
	}
	return stats, nil
}

func (m *memoryStore) List(context.Context, ports.PostFilter) ([]domain.DatabasePost, int, error) {
	return nil, 0, nil
}

func (m *memoryStore) Get(context.Context, string) (*domain.DatabasePost, error) {
	return nil, ports.ErrNotFound
}

func (m *memoryStore) Replace(context.Context, string, domain.DatabasePost) error {
	return nil
}

func enriched(id, code string) domain.EnrichedPost {
	return domain.EnrichedPost{
		Post: domain.ProcessedPost{
			ID:          id,
			Title:       "Title " + id,
			Explanation: "Explanation",
			Difficulty:  domain.DifficultyBeginner,
			Category:    domain.CategoryModernJS,
			Tags:        []string{"javascript"},
			Code:        code,
			Language:    "javascript",
			SourceName:  "acme/tips",
			SourceType:  domain.SourceGitHub,
		},
		QualityScore:       domain.QualityScore{Total: 88},
		ExtractedTags:      []string{"async", "JavaScript"},
		ReadingTimeSeconds: 20,
		Prerequisites:      []string{"JavaScript basics"},
	}
}

func TestToDatabasePost(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	row := ToDatabasePost(enriched("a", "await run();"), now)

	if row.CodeHash != dedup.RawHash("await run();") {
		t.Fatalf("code hash must digest raw code")
	}
	if len(row.Tags) != 2 || row.Tags[0] != "javascript" || row.Tags[1] != "async" {
		t.Fatalf("expected declared then extracted tags, got %v", row.Tags)
	}
	if row.QualityScore != 88 || row.ReadingTimeSeconds != 20 || !row.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestPublishBatchesAndCountsDuplicates(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	pub := NewPublisher(store, Options{BatchSize: 2}, nil)

	posts := []domain.EnrichedPost{
		enriched("a", "const a = 1;"),
		enriched("b", "const b = 1;"),
		enriched("c", "const a = 1;"),
		enriched("", "const d = 1;"),
	}
	res, err := pub.Publish(context.Background(), posts)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 3 || res.Duplicates != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(store.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(store.batches))
	}
	if id := store.batches[1][1].ID; id == "" {
		t.Fatalf("missing id was not generated")
	}

	// Second run over the same content updates instead of inserting.
	res, err = pub.Publish(context.Background(), posts[:2])
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if res.Published != 0 || res.Duplicates != 2 || len(store.rows) != 3 {
		t.Fatalf("republish should only update: %+v rows=%d", res, len(store.rows))
	}
}

func TestPublishIsolatesFailedBatch(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.failOn = 1
	pub := NewPublisher(store, Options{BatchSize: 2}, nil)

	res, err := pub.Publish(context.Background(), []domain.EnrichedPost{
		enriched("a", "one();"),
		enriched("b", "two();"),
		enriched("c", "three();"),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Failed != 2 || res.Published != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPublishRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher(nil, Options{}, nil).Publish(context.Background(), nil); err == nil {
		t.Fatalf("expected error without store")
	}
}

func quickRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		Retryable:   retry.IsTransient,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestPublishRetriesTransientWrite(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.failFirst = 1
	store.failErr = syscall.ECONNRESET
	pub := NewPublisher(store, Options{BatchSize: 2, Retry: quickRetry(3)}, nil)

	res, err := pub.Publish(context.Background(), []domain.EnrichedPost{
		enriched("a", "one();"),
		enriched("b", "two();"),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Published != 2 || res.Failed != 0 {
		t.Fatalf("transient failure should be retried: %+v", res)
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 write attempts, got %d", store.calls)
	}
}

func TestPublishCountsFailedAfterRetriesRunOut(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.failFirst = 10
	store.failErr = syscall.ECONNRESET
	pub := NewPublisher(store, Options{BatchSize: 2, Retry: quickRetry(3)}, nil)

	res, err := pub.Publish(context.Background(), []domain.EnrichedPost{
		enriched("a", "one();"),
		enriched("b", "two();"),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Failed != 2 || res.Published != 0 || store.calls != 3 {
		t.Fatalf("unexpected result %+v after %d calls", res, store.calls)
	}
}

func TestPublishRecordsOnlyWrittenSnippets(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.failOn = 1
	published := dedup.NewMemorySet()
	pub := NewPublisher(store, Options{BatchSize: 2, Retry: quickRetry(1), Published: published}, nil)

	first := enriched("a", "one();")
	second := enriched("b", "two();")
	third := enriched("c", "three();")
	third.Post.SnippetHash = "snippet-three"

	if _, err := pub.Publish(context.Background(), []domain.EnrichedPost{first, second, third}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ctx := context.Background()
	for _, code := range []string{"one();", "two();"} {
		if known, _ := published.Contains(ctx, dedup.Hash(code)); known {
			t.Fatalf("%q was in a failed batch and must stay unrecorded", code)
		}
	}
	if known, _ := published.Contains(ctx, "snippet-three"); !known {
		t.Fatalf("written snippet was not recorded")
	}
}
