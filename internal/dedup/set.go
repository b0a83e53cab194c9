package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

// MemorySet is a mutex-guarded in-process seen set.
type MemorySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var (
	_ ports.SeenSet      = (*MemorySet)(nil)
	_ ports.PublishedSet = (*MemorySet)(nil)
)

// NewMemorySet builds an empty set.
func NewMemorySet() *MemorySet {
	return &MemorySet{seen: map[string]struct{}{}}
}

// CheckAndInsert atomically tests membership and records hash.
func (m *MemorySet) CheckAndInsert(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[hash]; ok {
		return false, nil
	}
	m.seen[hash] = struct{}{}
	return true, nil
}

// Contains reports whether hash was recorded.
func (m *MemorySet) Contains(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[hash]
	return ok, nil
}

// Add records hashes.
func (m *MemorySet) Add(_ context.Context, hashes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range hashes {
		m.seen[h] = struct{}{}
	}
	return nil
}

// Len returns the number of distinct hashes recorded.
func (m *MemorySet) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// Deduplicator collapses snippets with a fresh seen set per call, so repeating
// an extraction yields the same snippets. Hashes already in the published history
// are dropped as well.
type Deduplicator struct {
	published ports.PublishedSet
}

// NewDeduplicator wires an optional published history.
func NewDeduplicator(published ports.PublishedSet) *Deduplicator {
	return &Deduplicator{published: published}
}

// Dedupe keeps the first-seen snippet per hash, in input order, and reports the dropped count.
// Missing hashes are computed from the code.
func (d *Deduplicator) Dedupe(ctx context.Context, snippets []domain.CodeSnippet) ([]domain.CodeSnippet, int, error) {
	seen := NewMemorySet()
	out := make([]domain.CodeSnippet, 0, len(snippets))
	dropped := 0
	for _, s := range snippets {
		if s.Hash == "" {
			s.Hash = Hash(s.Code)
		}
		if fresh, _ := seen.CheckAndInsert(ctx, s.Hash); !fresh {
			dropped++
			continue
		}
		if d.published != nil {
			known, err := d.published.Contains(ctx, s.Hash)
			if err != nil {
				return nil, 0, fmt.Errorf("check hash %s: %w", s.Hash, err)
			}
			if known {
				dropped++
				continue
			}
		}
		out = append(out, s)
	}
	return out, dropped, nil
}
