package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"busticket/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteKV persists snapshots in the kv_snapshots table.
type SQLiteKV struct {
	db     *sql.DB
	logger *log.Logger
}

type SQLiteOption func(*SQLiteKV)

// WithSQLiteLogger routes store debug logs through logger.
func WithSQLiteLogger(logger *log.Logger) SQLiteOption {
	return func(s *SQLiteKV) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentStorage)
		}
	}
}

var _ KV = (*SQLiteKV)(nil)

func NewSQLiteKV(dbPath string, opts ...SQLiteOption) (*SQLiteKV, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteKV{db: db, logger: log.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteKV) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_snapshots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_snapshots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved to SQLite", "key", key, "bytes", len(value))
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}
