package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style, list encoding and schema.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name to a dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, SQLite:
		return Dialect(driver), nil
	case "postgresql", "pq":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// Open connects to the database and verifies the connection. SQLite files get their
// directory created and WAL journaling enabled.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case SQLite:
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure data dir: %w", err)
			}
		}
	case Postgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA busy_timeout = 5000;`} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

var schemas = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			code TEXT NOT NULL,
			language TEXT NOT NULL,
			explanation TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			difficulty TEXT NOT NULL,
			category TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			source_name TEXT NOT NULL DEFAULT '',
			source_type TEXT NOT NULL DEFAULT '',
			quality_score INTEGER NOT NULL,
			reading_time_seconds INTEGER NOT NULL,
			prerequisites TEXT[] NOT NULL DEFAULT '{}',
			code_hash TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS posts_category_idx ON posts (category)`,
		`CREATE INDEX IF NOT EXISTS posts_tags_idx ON posts USING GIN (tags)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			code TEXT NOT NULL,
			language TEXT NOT NULL,
			explanation TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			difficulty TEXT NOT NULL,
			category TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			source_name TEXT NOT NULL DEFAULT '',
			source_type TEXT NOT NULL DEFAULT '',
			quality_score INTEGER NOT NULL,
			reading_time_seconds INTEGER NOT NULL,
			prerequisites TEXT NOT NULL DEFAULT '[]',
			code_hash TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS posts_category_idx ON posts (category)`,
	},
}
