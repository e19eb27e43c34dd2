package domain

import (
	"errors"
	"time"
)

// Progress-specific validation errors
var (
	// ErrProgressIDEmpty is returned when a progress record ID is empty.
	ErrProgressIDEmpty = errors.New("progress ID cannot be empty")

	// ErrProgressLessonIDEmpty is returned when a progress record has no lesson ID.
	ErrProgressLessonIDEmpty = errors.New("progress lesson ID cannot be empty")

	// ErrProgressScoreRange is returned when a score falls outside [0, 100].
	ErrProgressScoreRange = errors.New("progress score must be between 0 and 100")
)

// Progress records a user's state for a single lesson. It is created on the
// first interaction with a lesson and mutated in place on every subsequent
// interaction; only a full reset deletes it.
type Progress struct {
	ID          string        `json:"id"`
	LessonID    string        `json:"lesson_id"`
	Completed   bool          `json:"completed"`
	Score       float64       `json:"score"`
	TimeSpent   time.Duration `json:"time_spent_ms"`
	LastUpdated time.Time     `json:"last_updated"`
}

// NewProgress creates a fresh progress record for a lesson.
// The record ID is conventionally derived from the lesson ID so repeat
// interactions overwrite the same row.
func NewProgress(id, lessonID string) (*Progress, error) {
	p := &Progress{
		ID:          id,
		LessonID:    lessonID,
		LastUpdated: time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the progress data meets the domain requirements.
func (p *Progress) Validate() error {
	if p.ID == "" {
		return ErrProgressIDEmpty
	}
	if p.LessonID == "" {
		return ErrProgressLessonIDEmpty
	}
	if p.Score < 0 || p.Score > 100 {
		return ErrProgressScoreRange
	}
	return nil
}

// Record applies one interaction: it accumulates time spent, keeps the best
// score seen so far, latches completion, and refreshes LastUpdated.
func (p *Progress) Record(completed bool, score float64, timeSpent time.Duration) {
	if completed {
		p.Completed = true
	}
	if score > p.Score {
		p.Score = score
	}
	p.TimeSpent += timeSpent
	p.LastUpdated = time.Now().UTC()
}
