package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType identifies the kind of local mutation a pending action carries.
type ActionType string

// Known action types.
const (
	ActionProgressUpdate     ActionType = "progress_update"
	ActionLessonCompletion   ActionType = "lesson_completion"
	ActionVocabularyPractice ActionType = "vocabulary_practice"
)

// Valid reports whether the action type is one of the known set.
func (t ActionType) Valid() bool {
	switch t {
	case ActionProgressUpdate, ActionLessonCompletion, ActionVocabularyPractice:
		return true
	}
	return false
}

// PendingAction is one recorded local mutation awaiting acknowledgment from
// the remote system. The store assigns the auto-incrementing ID; Timestamp
// fixes the replay order. Synced is the only field that changes after
// creation — a record is never deleted individually, only by a full reset,
// so the table doubles as a durable history log.
type PendingAction struct {
	ID        int64           `json:"id"`
	Type      ActionType      `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Synced    bool            `json:"synced"`
}

// NewPendingAction builds an unsynced action with the current timestamp.
// The ID is zero until the store persists it.
func NewPendingAction(actionType ActionType, payload any) (*PendingAction, error) {
	if !actionType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActionType, actionType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal action payload: %w", err)
	}
	return &PendingAction{
		Type:      actionType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
		Synced:    false,
	}, nil
}

// UnmarshalPayload decodes the action payload into the provided structure.
func (a *PendingAction) UnmarshalPayload(v any) error {
	return json.Unmarshal(a.Payload, v)
}
