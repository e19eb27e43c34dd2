// Package sqlite implements the store interfaces on an embedded SQLite
// database. It is the durable single source of truth on the device: all
// writes are committed before the call returns, so records survive process
// restarts and crashes.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/phrazzld/lingosync/internal/platform/diskusage"
	"github.com/phrazzld/lingosync/internal/platform/logger"
	"github.com/phrazzld/lingosync/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// toMillis converts a time to the persisted epoch-millisecond form.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed store.LocalStore. The schema version is owned by
// goose: collection and index creation happen once at version 1, and any
// future structural change ships as a new migration.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.LocalStore = (*Store)(nil)

// Open idempotently opens (creating on first run) the local store at the
// given path and brings the schema up to date. It returns
// store.ErrStorageUnavailable when the host cannot provide durable storage
// at that location; callers must treat that as a capability failure, not a
// retryable error.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: storage path is empty", store.ErrStorageUnavailable)
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage directory: %v", store.ErrStorageUnavailable, err)
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", store.ErrStorageUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", store.ErrStorageUnavailable, err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: run migrations: %v", store.ErrStorageUnavailable, err)
	}

	return &Store{db: db, path: cleanPath}, nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for store.RunInTransaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying SQLite database.
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lessons returns the lesson collection store.
func (s *Store) Lessons() store.LessonStore {
	return &LessonStore{db: s.db}
}

// Progress returns the progress collection store.
func (s *Store) Progress() store.ProgressStore {
	return &ProgressStore{db: s.db}
}

// Media returns the media asset collection store.
func (s *Store) Media() store.MediaStore {
	return &MediaStore{db: s.db}
}

// Actions returns the pending-action log store.
func (s *Store) Actions() store.ActionStore {
	return &ActionStore{db: s.db}
}

// ClearAll wipes every collection in one transaction. A partial wipe never
// becomes visible: either all four collections empty out or none do.
func (s *Store) ClearAll(ctx context.Context) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, table := range []string{
			"pending_actions",
			"media_assets",
			"progress",
			"lesson_tags",
			"lessons",
		} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("%w: clear %s: %v", store.ErrWriteFailed, table, err)
			}
		}
		return nil
	})
}

// EstimateUsage reports the database footprint and the capacity of the
// filesystem holding it. Any accounting failure yields zeros, never an
// error: storage accounting is strictly best-effort.
func (s *Store) EstimateUsage(ctx context.Context) store.Usage {
	log := logger.FromContext(ctx)

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		log.Debug("storage accounting unavailable", slog.String("error", err.Error()))
		return store.Usage{}
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		log.Debug("storage accounting unavailable", slog.String("error", err.Error()))
		return store.Usage{}
	}

	quota, err := diskusage.Capacity(filepath.Dir(s.path))
	if err != nil {
		log.Debug("filesystem capacity unavailable", slog.String("error", err.Error()))
		quota = 0
	}

	return store.Usage{
		Used:  uint64(pageCount * pageSize),
		Quota: quota,
	}
}
