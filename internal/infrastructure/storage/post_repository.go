package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

const postsTable = "posts"

var postColumns = []string{
	"id", "title", "code", "language", "explanation", "tags", "difficulty", "category",
	"source_url", "source_name", "source_type", "quality_score", "reading_time_seconds",
	"prerequisites", "code_hash", "created_at", "updated_at",
}

const upsertSuffix = `ON CONFLICT (code_hash) DO UPDATE SET
	title = excluded.title,
	code = excluded.code,
	language = excluded.language,
	explanation = excluded.explanation,
	tags = excluded.tags,
	difficulty = excluded.difficulty,
	category = excluded.category,
	source_url = excluded.source_url,
	source_name = excluded.source_name,
	source_type = excluded.source_type,
	quality_score = excluded.quality_score,
	reading_time_seconds = excluded.reading_time_seconds,
	prerequisites = excluded.prerequisites,
	updated_at = excluded.updated_at`

// PostRepository persists published posts; code_hash is the conflict key.
type PostRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.PostStore = (*PostRepository)(nil)

// NewPostRepository wires a sql.DB implementation.
func NewPostRepository(db *sql.DB, dialect Dialect) *PostRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == Postgres {
		placeholder = sq.Dollar
	}
	return &PostRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Migrate creates the posts table and its indexes.
func (r *PostRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[r.dialect] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// UpsertBatch writes posts in one transaction. Rows whose code_hash already existed,
// or repeats inside the batch, are counted as updated. A row whose id is stored under
// another code_hash (a post rewritten by Replace) is kept as stored and counted as
// updated too.
func (r *PostRepository) UpsertBatch(ctx context.Context, posts []domain.DatabasePost) (ports.UpsertStats, error) {
	if len(posts) == 0 {
		return ports.UpsertStats{}, nil
	}

	var stats ports.UpsertStats
	candidates := make([]domain.DatabasePost, 0, len(posts))
	seenHash := map[string]bool{}
	seenID := map[string]bool{}
	for _, p := range posts {
		if seenHash[p.CodeHash] || seenID[p.ID] {
			stats.Updated++
			continue
		}
		seenHash[p.CodeHash] = true
		seenID[p.ID] = true
		candidates = append(candidates, p)
	}

	hashes := make([]string, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, p := range candidates {
		hashes = append(hashes, p.CodeHash)
		ids = append(ids, p.ID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.UpsertStats{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := r.existingHashes(ctx, tx, hashes)
	if err != nil {
		return ports.UpsertStats{}, err
	}
	storedIDs, err := r.storedHashesByID(ctx, tx, ids)
	if err != nil {
		return ports.UpsertStats{}, err
	}

	unique := candidates[:0]
	for _, p := range candidates {
		if stored, ok := storedIDs[p.ID]; ok && stored != p.CodeHash {
			stats.Updated++
			continue
		}
		unique = append(unique, p)
	}
	if len(unique) == 0 {
		return stats, tx.Commit()
	}

	now := r.now().UTC()
	insert := r.builder.Insert(postsTable).Columns(postColumns...)
	for _, p := range unique {
		created, updated := p.CreatedAt, p.UpdatedAt
		if created.IsZero() {
			created = now
		}
		if updated.IsZero() {
			updated = now
		}
		insert = insert.Values(
			p.ID, p.Title, p.Code, p.Language, p.Explanation, r.listArg(p.Tags),
			string(p.Difficulty), string(p.Category), p.SourceURL, p.SourceName, string(p.SourceType),
			p.QualityScore, p.ReadingTimeSeconds, r.listArg(p.Prerequisites), p.CodeHash,
			created.UTC(), updated.UTC(),
		)
		if existing[p.CodeHash] {
			stats.Updated++
		} else {
			stats.Inserted++
		}
	}

	query, args, err := insert.Suffix(upsertSuffix).ToSql()
	if err != nil {
		return ports.UpsertStats{}, fmt.Errorf("build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return ports.UpsertStats{}, fmt.Errorf("upsert posts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ports.UpsertStats{}, fmt.Errorf("commit tx: %w", err)
	}
	return stats, nil
}

func (r *PostRepository) existingHashes(ctx context.Context, tx *sql.Tx, hashes []string) (map[string]bool, error) {
	query, args, err := r.builder.Select("code_hash").From(postsTable).Where(sq.Eq{"code_hash": hashes}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		result[hash] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

func (r *PostRepository) storedHashesByID(ctx context.Context, tx *sql.Tx, ids []string) (map[string]string, error) {
	query, args, err := r.builder.Select("id", "code_hash").From(postsTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build id query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// List returns a filtered page ordered by quality and the exact number of matching rows.
func (r *PostRepository) List(ctx context.Context, filter ports.PostFilter) ([]domain.DatabasePost, int, error) {
	where := r.filterClause(filter)

	countQuery, countArgs, err := r.builder.Select("COUNT(*)").From(postsTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	sel := r.builder.Select(postColumns...).From(postsTable).Where(where).
		OrderBy("quality_score DESC", "created_at DESC", "id")
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		sel = sel.Offset(uint64(filter.Offset))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]domain.DatabasePost, 0)
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepository) filterClause(filter ports.PostFilter) sq.And {
	where := sq.And{}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": filter.Category})
	}
	if filter.Difficulty != "" {
		where = append(where, sq.Eq{"difficulty": filter.Difficulty})
	}
	if filter.Language != "" {
		where = append(where, sq.Eq{"language": filter.Language})
	}
	if filter.Tag != "" {
		if r.dialect == Postgres {
			where = append(where, sq.Expr("? = ANY(tags)", filter.Tag))
		} else {
			where = append(where, sq.Expr("EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)", filter.Tag))
		}
	}
	return where
}

// Get loads one post by id.
func (r *PostRepository) Get(ctx context.Context, id string) (*domain.DatabasePost, error) {
	query, args, err := r.builder.Select(postColumns...).From(postsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}
	p, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Replace overwrites the row identified by oldHash, including its code_hash.
func (r *PostRepository) Replace(ctx context.Context, oldHash string, post domain.DatabasePost) error {
	updatedAt := post.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	query, args, err := r.builder.Update(postsTable).
		Set("title", post.Title).
		Set("code", post.Code).
		Set("explanation", post.Explanation).
		Set("tags", r.listArg(post.Tags)).
		Set("difficulty", string(post.Difficulty)).
		Set("category", string(post.Category)).
		Set("code_hash", post.CodeHash).
		Set("updated_at", updatedAt.UTC()).
		Where(sq.Eq{"code_hash": oldHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("replace post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostRepository) scan(row rowScanner) (domain.DatabasePost, error) {
	var p domain.DatabasePost
	var difficulty, category, srcType string
	err := row.Scan(
		&p.ID, &p.Title, &p.Code, &p.Language, &p.Explanation, r.listDest(&p.Tags),
		&difficulty, &category, &p.SourceURL, &p.SourceName, &srcType,
		&p.QualityScore, &p.ReadingTimeSeconds, r.listDest(&p.Prerequisites), &p.CodeHash,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan post: %w", err)
	}
	p.Difficulty = domain.Difficulty(difficulty)
	p.Category = domain.Category(category)
	p.SourceType = domain.SourceType(srcType)
	return p, nil
}

func (r *PostRepository) listArg(v []string) any {
	if v == nil {
		v = []string{}
	}
	if r.dialect == Postgres {
		return pq.StringArray(v)
	}
	return jsonList(v)
}

func (r *PostRepository) listDest(dst *[]string) any {
	if r.dialect == Postgres {
		return (*pq.StringArray)(dst)
	}
	return (*jsonList)(dst)
}

// jsonList stores a string list as a JSON text column.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *jsonList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into string list", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l = out
	return nil
}

// PingContext checks the underlying connection.
func (r *PostRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
