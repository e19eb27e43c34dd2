package domain

import (
	"testing"
	"time"
)

func TestNewProgress(t *testing.T) {
	t.Parallel()

	p, err := NewProgress("progress-lesson-es-1", "lesson-es-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if p.Completed {
		t.Error("Expected fresh progress to be incomplete")
	}

	if p.Score != 0 {
		t.Errorf("Expected zero score, got %f", p.Score)
	}

	if p.LastUpdated.IsZero() {
		t.Error("Expected non-zero LastUpdated time")
	}

	// Empty ID
	_, err = NewProgress("", "lesson-es-1")
	if err != ErrProgressIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrProgressIDEmpty, err)
	}

	// Empty lesson ID
	_, err = NewProgress("progress-lesson-es-1", "")
	if err != ErrProgressLessonIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrProgressLessonIDEmpty, err)
	}
}

func TestProgressValidateScoreRange(t *testing.T) {
	t.Parallel()

	p := &Progress{ID: "p1", LessonID: "l1", Score: 120}
	if err := p.Validate(); err != ErrProgressScoreRange {
		t.Errorf("Expected error %v, got %v", ErrProgressScoreRange, err)
	}

	p.Score = -1
	if err := p.Validate(); err != ErrProgressScoreRange {
		t.Errorf("Expected error %v, got %v", ErrProgressScoreRange, err)
	}
}

func TestProgressRecord(t *testing.T) {
	t.Parallel()

	p, err := NewProgress("progress-lesson-es-1", "lesson-es-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	before := p.LastUpdated

	p.Record(false, 60, 30*time.Second)
	p.Record(true, 40, 15*time.Second)

	if !p.Completed {
		t.Error("Expected completion to latch")
	}

	if p.Score != 60 {
		t.Errorf("Expected best score 60 to be kept, got %f", p.Score)
	}

	if p.TimeSpent != 45*time.Second {
		t.Errorf("Expected accumulated time 45s, got %v", p.TimeSpent)
	}

	if p.LastUpdated.Before(before) {
		t.Error("Expected LastUpdated to advance")
	}
}
