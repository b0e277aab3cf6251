package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SqliteStore keeps all keys in a single SQLite table.
//
// Tables:
//
//	kv(key, value, version)  PRIMARY KEY (key)
//
// Compare-and-set is a conditional UPDATE/INSERT, so it holds across
// processes sharing the database file.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		version INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) Get(ctx context.Context, key string) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT value, version FROM kv WHERE key = ?", key,
	).Scan(&e.Value, &e.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return e, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, version) VALUES (?, ?, 1)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) CompareAndSet(ctx context.Context, key string, value []byte, version uint64) error {
	var (
		res sql.Result
		err error
	)
	if version == 0 {
		res, err = s.db.ExecContext(ctx,
			"INSERT INTO kv (key, value, version) VALUES (?, ?, 1) ON CONFLICT(key) DO NOTHING",
			key, value,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE kv SET value = ?, version = version + 1 WHERE key = ? AND version = ?",
			value, key, version,
		)
	}
	if err != nil {
		return fmt.Errorf("sqlite compare-and-set %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite compare-and-set %q: %w", key, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
