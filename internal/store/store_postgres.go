package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    body       TEXT NOT NULL,
    version    BIGINT NOT NULL CHECK (version > 0),
    digest     TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collections_updated_at ON collections(updated_at);
`

// Postgres stores collections in a shared PostgreSQL database.
// Put locks the collection row for the duration of the check-and-write.
type Postgres struct {
	sqlStore
}

// NewPostgres wraps an existing connection. Call Init before first use on a
// fresh database.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{sqlStore{db: db, d: postgresDialect, now: time.Now}}
}

// OpenPostgres connects using a lib/pq DSN and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	p := NewPostgres(db)
	if err := p.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Init creates the collections table if needed.
func (p *Postgres) Init(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
