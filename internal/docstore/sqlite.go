package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a single-file Store for one-node deployments.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("docstore: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("docstore: open sqlite: %w", err)
	}
	// one writer; counters rely on it
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("docstore: pragma %q: %w", p, err)
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: sqlite migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			doc_key    TEXT PRIMARY KEY,
			doc_value  BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS counters (
			counter_key   TEXT PRIMARY KEY,
			counter_value INTEGER NOT NULL DEFAULT 0
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, "SELECT doc_value FROM documents WHERE doc_key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: sqlite get %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_key, doc_value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(doc_key) DO UPDATE SET doc_value = excluded.doc_value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("docstore: sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE doc_key = ?", key); err != nil {
		return fmt.Errorf("docstore: sqlite delete %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM counters WHERE counter_key = ?", key); err != nil {
		return fmt.Errorf("docstore: sqlite delete %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLite) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (counter_key, counter_value) VALUES (?, 1)
		ON CONFLICT(counter_key) DO UPDATE SET counter_value = counter_value + 1
		RETURNING counter_value`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("docstore: sqlite incr %s: %w", key, err)
	}
	return n, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
