package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/store"
)

// ProgressStore implements store.ProgressStore using SQLite.
type ProgressStore struct {
	db store.DBTX
}

// NewProgressStore creates a ProgressStore on the given handle.
func NewProgressStore(db store.DBTX) *ProgressStore {
	return &ProgressStore{db: db}
}

// WithTx returns a ProgressStore bound to the provided transaction.
func (s *ProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return &ProgressStore{db: tx}
}

// Put inserts or replaces a progress record keyed by its own ID.
func (s *ProgressStore) Put(ctx context.Context, progress *domain.Progress) error {
	if err := progress.Validate(); err != nil {
		return err
	}

	const upsertSQL = `
		INSERT INTO progress (id, lesson_id, completed, score, time_spent_ms, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lesson_id = excluded.lesson_id,
			completed = excluded.completed,
			score = excluded.score,
			time_spent_ms = excluded.time_spent_ms,
			last_updated = excluded.last_updated
	`
	if _, err := s.db.ExecContext(ctx, upsertSQL,
		progress.ID,
		progress.LessonID,
		progress.Completed,
		progress.Score,
		progress.TimeSpent.Milliseconds(),
		toMillis(progress.LastUpdated),
	); err != nil {
		return fmt.Errorf("%w: upsert progress: %v", store.ErrWriteFailed, err)
	}
	return nil
}

// Get returns the progress record with the given ID, or nil when absent.
func (s *ProgressStore) Get(ctx context.Context, id string) (*domain.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, lesson_id, completed, score, time_spent_ms, last_updated FROM progress WHERE id = ?", id)

	progress, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.NewStoreError("progress", "get", "query failed", err)
	}
	return progress, nil
}

// GetByLesson returns all progress records for a lesson.
func (s *ProgressStore) GetByLesson(ctx context.Context, lessonID string) ([]*domain.Progress, error) {
	return s.queryProgress(ctx,
		"SELECT id, lesson_id, completed, score, time_spent_ms, last_updated FROM progress WHERE lesson_id = ? ORDER BY id",
		lessonID)
}

// GetAll returns every progress record, used for bulk hydration.
func (s *ProgressStore) GetAll(ctx context.Context) ([]*domain.Progress, error) {
	return s.queryProgress(ctx,
		"SELECT id, lesson_id, completed, score, time_spent_ms, last_updated FROM progress ORDER BY id")
}

func (s *ProgressStore) queryProgress(ctx context.Context, query string, args ...any) ([]*domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("progress", "query", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.Progress, 0)
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, store.NewStoreError("progress", "query", "scan failed", err)
		}
		records = append(records, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("progress", "query", "iterate failed", err)
	}
	return records, nil
}

func scanProgress(row rowScanner) (*domain.Progress, error) {
	var (
		progress    domain.Progress
		timeSpentMS int64
		lastUpdated int64
	)
	if err := row.Scan(
		&progress.ID,
		&progress.LessonID,
		&progress.Completed,
		&progress.Score,
		&timeSpentMS,
		&lastUpdated,
	); err != nil {
		return nil, err
	}
	progress.TimeSpent = time.Duration(timeSpentMS) * time.Millisecond
	progress.LastUpdated = fromMillis(lastUpdated)
	return &progress, nil
}
