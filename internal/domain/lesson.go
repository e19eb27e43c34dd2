package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Lesson-specific validation errors
var (
	// ErrLessonIDEmpty is returned when a lesson ID is empty.
	ErrLessonIDEmpty = errors.New("lesson ID cannot be empty")

	// ErrLessonContentEmpty is returned when a lesson's content is empty.
	ErrLessonContentEmpty = errors.New("lesson content cannot be empty")

	// ErrLessonContentInvalid is returned when a lesson's content is not valid JSON.
	ErrLessonContentInvalid = errors.New("lesson content must be valid JSON")
)

// Lesson is the full offline copy of a lesson. The content is stored as an
// opaque JSON document so lesson formats can evolve without schema changes.
// Lessons are written by preload or sync-pull operations and are read-only
// from the UI's perspective; only a full cache clear removes them.
type Lesson struct {
	ID       string          `json:"id"`
	Level    string          `json:"level"`
	Tags     []string        `json:"tags"`
	Content  json.RawMessage `json:"content"`
	StoredAt time.Time       `json:"stored_at"`
}

// NewLesson creates a Lesson with the given identity and content,
// stamping the storage time.
func NewLesson(id, level string, tags []string, content json.RawMessage) (*Lesson, error) {
	lesson := &Lesson{
		ID:       id,
		Level:    level,
		Tags:     tags,
		Content:  content,
		StoredAt: time.Now().UTC(),
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Validate checks that the lesson data meets the domain requirements.
func (l *Lesson) Validate() error {
	if l.ID == "" {
		return ErrLessonIDEmpty
	}
	if len(l.Content) == 0 {
		return ErrLessonContentEmpty
	}
	if !json.Valid(l.Content) {
		return fmt.Errorf("%w: %s", ErrLessonContentInvalid, "content failed JSON validation")
	}
	return nil
}

// HasTag reports whether the lesson carries the given tag.
func (l *Lesson) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
