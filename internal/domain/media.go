package domain

import (
	"errors"
	"time"
)

// Media-specific validation errors
var (
	// ErrMediaIDEmpty is returned when a media asset ID is empty.
	ErrMediaIDEmpty = errors.New("media asset ID cannot be empty")

	// ErrMediaTypeEmpty is returned when a media asset has no type.
	ErrMediaTypeEmpty = errors.New("media asset type cannot be empty")

	// ErrMediaLessonIDEmpty is returned when a media asset has no lesson ID.
	ErrMediaLessonIDEmpty = errors.New("media asset lesson ID cannot be empty")
)

// MediaAsset is a binary asset (audio, image) preloaded for offline use.
// Assets are immutable once stored and are removed only by a cache clear.
// Data may be nil when only the asset's existence is tracked and the bytes
// live in the response cache instead.
type MediaAsset struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	LessonID string    `json:"lesson_id"`
	Data     []byte    `json:"-"`
	StoredAt time.Time `json:"stored_at"`
}

// NewMediaAsset creates a media asset record for a lesson.
func NewMediaAsset(id, mediaType, lessonID string, data []byte) (*MediaAsset, error) {
	asset := &MediaAsset{
		ID:       id,
		Type:     mediaType,
		LessonID: lessonID,
		Data:     data,
		StoredAt: time.Now().UTC(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// Validate checks that the media asset meets the domain requirements.
func (m *MediaAsset) Validate() error {
	if m.ID == "" {
		return ErrMediaIDEmpty
	}
	if m.Type == "" {
		return ErrMediaTypeEmpty
	}
	if m.LessonID == "" {
		return ErrMediaLessonIDEmpty
	}
	return nil
}
