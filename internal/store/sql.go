package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/lexstore/internal/record"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// appended to the version read inside Put
	lockSuffix string
}

var (
	sqliteDialect   = dialect{name: "sqlite"}
	postgresDialect = dialect{name: "postgres", numbered: true, lockSuffix: " FOR UPDATE"}
)

// sqlStore implements CollectionStore over database/sql.
// Each collection is one row; Put runs read-check-write in a transaction.
type sqlStore struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *sqlStore) rebind(query string) string {
	if !s.d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Get(ctx context.Context, name string) (Snapshot, error) {
	snap := Snapshot{Name: name}
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT body, version, digest, updated_at FROM collections WHERE name = ?"),
		name,
	).Scan(&snap.Data, &snap.Version, &snap.Digest, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Name: name}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, err)
	}
	return snap, nil
}

func (s *sqlStore) Put(ctx context.Context, name string, data []byte, expected int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	var (
		current int64
		digest  string
	)
	err = tx.QueryRowContext(ctx,
		s.rebind("SELECT version, digest FROM collections WHERE name = ?"+s.d.lockSuffix),
		name,
	).Scan(&current, &digest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("put %q: read version: %w", name, err)
	}

	if err := checkVersion(name, expected, current); err != nil {
		return 0, err
	}

	sum := record.Digest(data)
	if current > 0 && digest == sum {
		return current, nil
	}

	next := current + 1
	var res sql.Result
	if current == 0 {
		res, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO collections (name, body, version, digest, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (name) DO NOTHING`),
			name, string(data), next, sum, s.now().UTC(),
		)
	} else {
		res, err = tx.ExecContext(ctx,
			s.rebind(`UPDATE collections SET body = ?, version = ?, digest = ?, updated_at = ?
				WHERE name = ? AND version = ?`),
			string(data), next, sum, s.now().UTC(), name, current,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("put %q: write: %w", name, err)
	}

	// Zero rows means another writer got there between our read and write.
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("put %q: rows affected: %w", name, err)
	}
	if rows == 0 {
		return 0, &ConflictError{Collection: name, Expected: expected, Current: next}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put %q: commit: %w", name, err)
	}
	return next, nil
}

func (s *sqlStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections")
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	// Database collations disagree, so order in Go.
	slices.Sort(names)
	return names, nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
