package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_keys (
	uid TEXT PRIMARY KEY,
	record BLOB NOT NULL
);
`

// SQLite is a Medium backed by one table in a SQLite database.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ Medium = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path. ":memory:" keeps the
// table in memory.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("keystore: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("keystore: open db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("keystore: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	var out []byte
	err := s.db.QueryRowContext(ctx, "SELECT record FROM user_keys WHERE uid = ?", key).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: get %q: %w", key, err)
	}
	return out, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_keys (uid, record) VALUES (?, ?) ON CONFLICT(uid) DO UPDATE SET record = excluded.record",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("keystore: set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM user_keys"); err != nil {
		return fmt.Errorf("keystore: clear: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
