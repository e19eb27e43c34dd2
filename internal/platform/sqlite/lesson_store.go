package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/store"
)

// LessonStore implements store.LessonStore using SQLite.
type LessonStore struct {
	db store.DBTX
}

// NewLessonStore creates a LessonStore on the given handle.
func NewLessonStore(db store.DBTX) *LessonStore {
	return &LessonStore{db: db}
}

// WithTx returns a LessonStore bound to the provided transaction.
func (s *LessonStore) WithTx(tx *sql.Tx) store.LessonStore {
	return &LessonStore{db: tx}
}

// Put inserts or replaces a lesson and its tag index rows. When called
// outside a transaction it opens one, since the lesson row and its tag rows
// must commit together.
func (s *LessonStore) Put(ctx context.Context, lesson *domain.Lesson) error {
	if err := lesson.Validate(); err != nil {
		return err
	}

	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return s.WithTx(tx).Put(ctx, lesson)
		})
	}

	tags, err := json.Marshal(lesson.Tags)
	if err != nil {
		return fmt.Errorf("%w: marshal tags: %v", store.ErrWriteFailed, err)
	}

	const upsertSQL = `
		INSERT INTO lessons (id, level, tags, content, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			level = excluded.level,
			tags = excluded.tags,
			content = excluded.content,
			stored_at = excluded.stored_at
	`
	if _, err := s.db.ExecContext(ctx, upsertSQL,
		lesson.ID,
		lesson.Level,
		string(tags),
		[]byte(lesson.Content),
		toMillis(lesson.StoredAt),
	); err != nil {
		return fmt.Errorf("%w: upsert lesson: %v", store.ErrWriteFailed, err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM lesson_tags WHERE lesson_id = ?", lesson.ID); err != nil {
		return fmt.Errorf("%w: reset lesson tags: %v", store.ErrWriteFailed, err)
	}
	for _, tag := range lesson.Tags {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO lesson_tags (lesson_id, tag) VALUES (?, ?)",
			lesson.ID, tag,
		); err != nil {
			return fmt.Errorf("%w: index lesson tag: %v", store.ErrWriteFailed, err)
		}
	}

	return nil
}

// Get returns the lesson with the given ID, or nil when absent.
func (s *LessonStore) Get(ctx context.Context, id string) (*domain.Lesson, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, level, tags, content, stored_at FROM lessons WHERE id = ?", id)

	lesson, err := scanLesson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.NewStoreError("lessons", "get", "query failed", err)
	}
	return lesson, nil
}

// GetByLevel returns all lessons at the given level.
func (s *LessonStore) GetByLevel(ctx context.Context, level string) ([]*domain.Lesson, error) {
	return s.queryLessons(ctx,
		"SELECT id, level, tags, content, stored_at FROM lessons WHERE level = ? ORDER BY id", level)
}

// GetByTag returns all lessons carrying the given tag.
func (s *LessonStore) GetByTag(ctx context.Context, tag string) ([]*domain.Lesson, error) {
	const query = `
		SELECT l.id, l.level, l.tags, l.content, l.stored_at
		FROM lessons l
		JOIN lesson_tags lt ON lt.lesson_id = l.id
		WHERE lt.tag = ?
		ORDER BY l.id
	`
	return s.queryLessons(ctx, query, tag)
}

// GetAll returns every lesson.
func (s *LessonStore) GetAll(ctx context.Context) ([]*domain.Lesson, error) {
	return s.queryLessons(ctx,
		"SELECT id, level, tags, content, stored_at FROM lessons ORDER BY id")
}

func (s *LessonStore) queryLessons(ctx context.Context, query string, args ...any) ([]*domain.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("lessons", "query", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	lessons := make([]*domain.Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, store.NewStoreError("lessons", "query", "scan failed", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("lessons", "query", "iterate failed", err)
	}
	return lessons, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*domain.Lesson, error) {
	var (
		lesson   domain.Lesson
		tags     string
		content  []byte
		storedAt int64
	)
	if err := row.Scan(&lesson.ID, &lesson.Level, &tags, &content, &storedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &lesson.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	lesson.Content = content
	lesson.StoredAt = fromMillis(storedAt)
	return &lesson, nil
}
