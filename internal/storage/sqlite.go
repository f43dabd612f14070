package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/migrations"
)

// SQLite is a KV backend stored in a local SQLite database. Desktop and
// agent hosts use it where the web client would use localStorage; unlike
// the File backend it survives concurrent host processes.
type SQLite struct {
	db      *sql.DB
	logger  *logger.Logger
	builder sq.StatementBuilderType
}

// NewSQLite opens the database at dsn (created if missing) and applies the
// embedded schema migrations.
func NewSQLite(ctx context.Context, dsn string, log *logger.Logger) (*SQLite, error) {
	if err := createDBFileIfNotExists(dsn); err != nil {
		log.Err(err).Str("dsn", dsn).Msg("error creating database file")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite storage: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite storage: %w", err)
	}

	if err = migrations.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate sqlite storage: %w", err)
	}

	return &SQLite{
		db:      db,
		logger:  log,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	query, args, err := s.builder.
		Select("value").
		From("settings_kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build get query: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	query, args, err := s.builder.
		Insert("settings_kv").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete("settings_kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Usage(ctx context.Context) (Usage, error) {
	query, args, err := s.builder.
		Select("COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)").
		From("settings_kv").
		ToSql()
	if err != nil {
		return Usage{}, fmt.Errorf("build usage query: %w", err)
	}

	var used int64
	if err = s.db.QueryRowContext(ctx, query, args...).Scan(&used); err != nil {
		return Usage{}, fmt.Errorf("query usage: %w", err)
	}
	return Usage{UsedBytes: used}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func createDBFileIfNotExists(dsn string) error {
	if dsn == ":memory:" {
		return nil
	}
	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		f, err := os.Create(dsn)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		return f.Close()
	}
	return nil
}
