package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"captionsync/internal/clock"
	"captionsync/internal/config"
	"captionsync/internal/retry"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const sqliteBusyCode = 5

var busyPolicy = retry.Policy{
	Attempts:   5,
	Initial:    10 * time.Millisecond,
	Max:        200 * time.Millisecond,
	Multiplier: 2,
	Retriable:  isSQLiteBusy,
}

// Entry is one cached document.
type Entry struct {
	Namespace string
	Key       string
	Value     []byte
	StoredAt  time.Time
}

// Age reports how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store manages cache persistence backed by SQLite.
type Store struct {
	db    *sql.DB
	path  string
	clock clock.Clock
}

// Open initializes or connects to the cache database under paths.cache_dir.
func Open(cfg *config.Config, clk clock.Clock) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.CachePath(), clk)
}

// OpenPath opens the cache database at an explicit location.
func OpenPath(path string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.System{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: path, clock: clk}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return retry.Do(ctx, busyPolicy, func(ctx context.Context) (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	}, nil)
}

// Put stores value under (namespace, key), stamped with the clock's time.
func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	if namespace == "" || key == "" {
		return errors.New("cache put: namespace and key are required")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.exec(ctx,
		`INSERT INTO entries (namespace, key, value, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		namespace, key, value, s.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("cache put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get returns the entry when present and no older than maxAge. A maxAge of
// zero or less accepts entries of any age.
func (s *Store) Get(ctx context.Context, namespace, key string, maxAge time.Duration) (Entry, bool, error) {
	var (
		value    []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, stored_at FROM entries WHERE namespace = ? AND key = ?",
		namespace, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get %s/%s: %w", namespace, key, err)
	}
	entry := Entry{Namespace: namespace, Key: key, Value: value, StoredAt: time.Unix(0, storedAt)}
	if maxAge > 0 && entry.Age(s.clock.Now()) > maxAge {
		return entry, false, nil
	}
	return entry, true, nil
}

// Delete removes one entry. Missing entries are not an error.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if _, err := s.exec(ctx, "DELETE FROM entries WHERE namespace = ? AND key = ?", namespace, key); err != nil {
		return fmt.Errorf("cache delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns every entry in namespace ordered by key.
func (s *Store) List(ctx context.Context, namespace string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value, stored_at FROM entries WHERE namespace = ? ORDER BY key", namespace)
	if err != nil {
		return nil, fmt.Errorf("cache list %s: %w", namespace, err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			entry    = Entry{Namespace: namespace}
			storedAt int64
		)
		if err := rows.Scan(&entry.Key, &entry.Value, &storedAt); err != nil {
			return nil, fmt.Errorf("cache list scan: %w", err)
		}
		entry.StoredAt = time.Unix(0, storedAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Purge deletes entries older than maxAge and returns how many were removed.
func (s *Store) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-maxAge).UnixNano()
	res, err := s.exec(ctx, "DELETE FROM entries WHERE stored_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
