package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lexstore/internal/record"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func versionRows(version int64, digest string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"version", "digest"}).AddRow(version, digest)
}

const lockQuery = "SELECT version, digest FROM collections WHERE name = $1 FOR UPDATE"

func TestPostgres_Init(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS collections").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetAbsent(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body, version, digest, updated_at FROM collections WHERE name = $1")).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"body", "version", "digest", "updated_at"}))

	snap, err := p.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetExisting(t *testing.T) {
	p, mock := newMockPostgres(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body, version, digest, updated_at FROM collections WHERE name = $1")).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"body", "version", "digest", "updated_at"}).
			AddRow([]byte(`[{"id":"u1"}]`), int64(4), "abc", at))

	snap, err := p.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Name: "users", Data: []byte(`[{"id":"u1"}]`), Version: 4, Digest: "abc", UpdatedAt: at}, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutCreates(t *testing.T) {
	p, mock := newMockPostgres(t)
	data := []byte(`[]`)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"version", "digest"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collections")).
		WithArgs("users", "[]", int64(1), record.Digest(data), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := p.Put(context.Background(), "users", data, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutUpdates(t *testing.T) {
	p, mock := newMockPostgres(t)
	data := []byte(`[{"id":"u1"}]`)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("users").
		WillReturnRows(versionRows(2, "old"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE collections SET body = $1, version = $2, digest = $3, updated_at = $4")).
		WithArgs(string(data), int64(3), record.Digest(data), sqlmock.AnyArg(), "users", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := p.Put(context.Background(), "users", data, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutStaleVersion(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("crm").
		WillReturnRows(versionRows(5, "d"))
	mock.ExpectRollback()

	_, err := p.Put(context.Background(), "crm", []byte(`[]`), 4)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutUnchanged(t *testing.T) {
	p, mock := newMockPostgres(t)
	data := []byte(`[]`)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("orders").
		WillReturnRows(versionRows(7, record.Digest(data)))
	mock.ExpectRollback()

	v, err := p.Put(context.Background(), "orders", data, AnyVersion)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutLostInsertRace(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"version", "digest"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collections")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := p.Put(context.Background(), "users", []byte(`[]`), 0)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Names(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery("SELECT name FROM collections").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("users").AddRow("catalog").AddRow("crm"))

	names, err := p.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog", "crm", "users"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	p := NewPostgres(nil)
	assert.Equal(t, "a = $1 AND b = $2", p.rebind("a = ? AND b = ?"))

	s := &sqlStore{d: sqliteDialect}
	assert.Equal(t, "a = ? AND b = ?", s.rebind("a = ? AND b = ?"))
}
