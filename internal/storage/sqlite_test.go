package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexmarkets/settingsync/internal/logger"
)

func newMockSQLite(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := &SQLite{
		db:      db,
		logger:  logger.Nop(),
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	return store, mock
}

func TestSQLite_Get(t *testing.T) {
	store, mock := newMockSQLite(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM settings_kv WHERE key = \?`).
		WithArgs("queue/changes").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	value, err := store.Get(ctx, "queue/changes")
	require.NoError(t, err)
	assert.Equal(t, `[]`, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_GetNotFound(t *testing.T) {
	store, mock := newMockSQLite(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM settings_kv`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SetUpserts(t *testing.T) {
	store, mock := newMockSQLite(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO settings_kv \(key,value,updated_at\) VALUES \(\?,\?,\?\) ON CONFLICT\(key\) DO UPDATE`).
		WithArgs("queue/changes", `[{"id":"1"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(ctx, "queue/changes", `[{"id":"1"}]`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_Remove(t *testing.T) {
	store, mock := newMockSQLite(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM settings_kv WHERE key = \?`).
		WithArgs("queue/changes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Remove(ctx, "queue/changes"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_Usage(t *testing.T) {
	store, mock := newMockSQLite(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(LENGTH\(key\) \+ LENGTH\(value\)\), 0\) FROM settings_kv`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(42)))

	usage, err := store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), usage.UsedBytes)
}
