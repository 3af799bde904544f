package seriescache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Kinds of cached payloads.
const (
	KindSearch = "search"
	KindIssues = "issues"
	KindIssue  = "issue"
)

// Store persists cache rows in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Stats summarizes cache contents.
type Stats struct {
	Size              int
	EntriesWithIssues int
	Expired           int
	Path              string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open creates or connects to the cache database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
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

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *Store) Path() string { return s.path }

// SetClock overrides the time source used for expiry.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Store) timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Get returns the payload for a fresh row. Expired or missing rows report ok=false.
func (s *Store) Get(ctx context.Context, kind, source, key string) ([]byte, bool, error) {
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT payload FROM cache_entries
             WHERE kind = ? AND source = ? AND cache_key = ? AND expires_at > ?`,
			kind, source, key, s.timestamp(s.now()),
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s/%s: %w", kind, key, err)
	}
	return []byte(payload), true, nil
}

// Put upserts a row that expires after ttl.
func (s *Store) Put(ctx context.Context, kind, source, key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO cache_entries (kind, source, cache_key, payload, created_at, expires_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(kind, source, cache_key) DO UPDATE SET
                payload = excluded.payload,
                created_at = excluded.created_at,
                expires_at = excluded.expires_at`,
			kind, source, key, string(payload), s.timestamp(now), s.timestamp(now.Add(ttl)),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("write cache entry %s/%s: %w", kind, key, err)
	}
	return nil
}

// Stats counts rows. EntriesWithIssues counts issue listings.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
         FROM cache_entries`,
		KindIssues, s.timestamp(s.now()),
	).Scan(&stats.Size, &stats.EntriesWithIssues, &stats.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// CleanExpired deletes expired rows and returns how many were removed.
func (s *Store) CleanExpired(ctx context.Context) (int, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, s.timestamp(s.now()))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clean expired cache entries: %w", err)
	}
	return int(removed), nil
}

// ClearAll removes every row and returns how many were removed.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return int(removed), nil
}
