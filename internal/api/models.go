package api

import (
	"time"

	"github.com/phrazzld/lingosync/internal/offline"
)

// Common request/response structures

// ProgressRequest defines the payload for the progress recording endpoint.
type ProgressRequest struct {
	LessonID    string  `json:"lesson_id"     validate:"required"`
	Completed   bool    `json:"completed"`
	Score       float64 `json:"score"         validate:"gte=0,lte=100"`
	TimeSpentMS int64   `json:"time_spent_ms" validate:"gte=0"`
}

// VocabularyPracticeRequest defines the payload for the vocabulary practice
// endpoint.
type VocabularyPracticeRequest struct {
	LessonID    string   `json:"lesson_id"     validate:"required"`
	Words       []string `json:"words"`
	Correct     int      `json:"correct"       validate:"gte=0"`
	TimeSpentMS int64    `json:"time_spent_ms" validate:"gte=0"`
}

// ProgressResponse returns the progress record after a mutation.
type ProgressResponse struct {
	LessonID    string    `json:"lesson_id"`
	Completed   bool      `json:"completed"`
	Score       float64   `json:"score"`
	TimeSpentMS int64     `json:"time_spent_ms"`
	LastUpdated time.Time `json:"last_updated"`
}

// ConnectivityRequest is the host shell's reachability signal.
type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// PreloadResponse confirms a lesson landed in the local store.
type PreloadResponse struct {
	LessonID string `json:"lesson_id"`
	Level    string `json:"level"`
}

// SyncResponse reports the outcome of an explicit sync request.
type SyncResponse struct {
	Status offline.Status `json:"status"`
}
