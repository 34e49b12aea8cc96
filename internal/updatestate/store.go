// Package updatestate remembers release checks between runs so the next
// check can send the stored ETag. Daemon responses are never stored here.
package updatestate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"feishu-tray/internal/updatecheck"
)

// Record is one stored check.
type Record struct {
	ID        int64
	CheckedAt time.Time
	updatecheck.Result
}

// Store persists update checks in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores one check result.
func (s *Store) Record(ctx context.Context, result updatecheck.Result, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_checks (
            checked_at, etag, not_modified, current_version, latest_version,
            release_url, release_notes, has_update
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano),
		result.ETag,
		boolToInt(result.NotModified),
		result.CurrentVersion,
		result.LatestVersion,
		result.ReleaseURL,
		result.ReleaseNotes,
		boolToInt(result.HasUpdate),
	)
	if err != nil {
		return fmt.Errorf("insert update check: %w", err)
	}
	return nil
}

// Latest returns the newest record. ok is false when nothing is stored.
func (s *Store) Latest(ctx context.Context) (Record, bool, error) {
	return s.scanOne(ctx, `SELECT id, checked_at, etag, not_modified, current_version, latest_version,
        release_url, release_notes, has_update
        FROM update_checks ORDER BY id DESC LIMIT 1`)
}

// LatestRelease returns the newest record that carried release fields, which
// is what a 304 answer refers to.
func (s *Store) LatestRelease(ctx context.Context) (Record, bool, error) {
	return s.scanOne(ctx, `SELECT id, checked_at, etag, not_modified, current_version, latest_version,
        release_url, release_notes, has_update
        FROM update_checks WHERE not_modified = 0 ORDER BY id DESC LIMIT 1`)
}

func (s *Store) scanOne(ctx context.Context, query string) (Record, bool, error) {
	var (
		rec         Record
		checkedAt   string
		notModified int
		hasUpdate   int
	)
	err := s.db.QueryRowContext(ctx, query).Scan(
		&rec.ID,
		&checkedAt,
		&rec.ETag,
		&notModified,
		&rec.CurrentVersion,
		&rec.LatestVersion,
		&rec.ReleaseURL,
		&rec.ReleaseNotes,
		&hasUpdate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query update check: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, checkedAt); err == nil {
		rec.CheckedAt = parsed
	}
	rec.NotModified = notModified != 0
	rec.HasUpdate = hasUpdate != 0
	return rec, true, nil
}

// Prune keeps the newest keep records.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM update_checks WHERE id NOT IN (
            SELECT id FROM update_checks ORDER BY id DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune update checks: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
