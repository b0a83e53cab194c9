package ports

import (
	"context"
	"errors"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

// ErrNotFound is returned by adapters when the requested content does not exist.
var ErrNotFound = errors.New("not found")

// Readme is the decoded repository README.
type Readme struct {
	Path    string
	Content string
	Size    int
}

// ContentEntry is one item of a repository directory listing.
type ContentEntry struct {
	Name string
	Path string
	Type string
	Size int
}

// CodeHost is the code-host search/content capability.
type CodeHost interface {
	SearchRepositories(ctx context.Context, query string, limit int) ([]domain.Repository, error)
	Readme(ctx context.Context, owner, repo string) (Readme, error)
	ListDirectory(ctx context.Context, owner, repo, path string) ([]ContentEntry, error)
	FileContent(ctx context.Context, owner, repo, path string) (string, error)
}

// Completer sends a system instruction plus user prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// PostFilter narrows a paginated read of published posts.
type PostFilter struct {
	Category   string
	Difficulty string
	Language   string
	Tag        string
	Limit      int
	Offset     int
}

// UpsertStats splits a batch write into fresh rows and rows that already existed.
type UpsertStats struct {
	Inserted int
	Updated  int
}

// PostStore is the persistent store with upsert-on-code_hash semantics.
type PostStore interface {
	UpsertBatch(ctx context.Context, posts []domain.DatabasePost) (UpsertStats, error)
	List(ctx context.Context, filter PostFilter) ([]domain.DatabasePost, int, error)
	Get(ctx context.Context, id string) (*domain.DatabasePost, error)
	Replace(ctx context.Context, oldHash string, post domain.DatabasePost) error
}

// SeenSet is the dedup membership set. CheckAndInsert reports true when hash was new.
type SeenSet interface {
	CheckAndInsert(ctx context.Context, hash string) (bool, error)
}

// PublishedSet remembers snippet hashes that reached the store in earlier runs.
// Extraction only reads it; publishing adds to it.
type PublishedSet interface {
	Contains(ctx context.Context, hash string) (bool, error)
	Add(ctx context.Context, hashes ...string) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
