package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/platform/sqlite"
	"github.com/phrazzld/lingosync/internal/store"
)

type countingKicker struct {
	kicks int
}

func (k *countingKicker) Kick(context.Context) { k.kicks++ }

func newTestService(t *testing.T) (ProgressService, store.LocalStore, *countingKicker) {
	t.Helper()

	localStore, err := sqlite.Open(filepath.Join(t.TempDir(), "lingosync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = localStore.Close() })

	kicker := &countingKicker{}
	svc, err := NewProgressService(localStore, kicker, slog.Default())
	require.NoError(t, err)
	return svc, localStore, kicker
}

func TestNewProgressServiceValidatesDependencies(t *testing.T) {
	_, err := NewProgressService(nil, &countingKicker{}, slog.Default())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordProgressFirstInteraction(t *testing.T) {
	svc, localStore, kicker := newTestService(t)
	ctx := context.Background()

	progress, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID:  "lesson-es-1",
		Score:     70,
		TimeSpent: 90 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "progress-lesson-es-1", progress.ID)
	assert.False(t, progress.Completed)
	assert.Equal(t, float64(70), progress.Score)
	assert.Equal(t, 90*time.Second, progress.TimeSpent)
	assert.Equal(t, 1, kicker.kicks)

	// The progress row and its replay action committed together.
	stored, err := localStore.Progress().Get(ctx, "progress-lesson-es-1")
	require.NoError(t, err)
	require.NotNil(t, stored)

	actions, err := localStore.Actions().GetUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionProgressUpdate, actions[0].Type)
}

func TestRecordProgressAccumulates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID: "lesson-es-1", Score: 80, TimeSpent: time.Minute,
	})
	require.NoError(t, err)

	// Second interaction: lower score, more time.
	progress, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID: "lesson-es-1", Score: 60, TimeSpent: 30 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(80), progress.Score, "best score is kept")
	assert.Equal(t, 90*time.Second, progress.TimeSpent, "time accumulates")
}

func TestRecordProgressCompletionAddsSecondAction(t *testing.T) {
	svc, localStore, _ := newTestService(t)
	ctx := context.Background()

	progress, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID:  "lesson-es-1",
		Completed: true,
		Score:     95,
	})
	require.NoError(t, err)
	assert.True(t, progress.Completed)

	actions, err := localStore.Actions().GetUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, domain.ActionProgressUpdate, actions[0].Type)
	assert.Equal(t, domain.ActionLessonCompletion, actions[1].Type)

	var completion struct {
		LessonID string  `json:"lesson_id"`
		Score    float64 `json:"score"`
	}
	require.NoError(t, actions[1].UnmarshalPayload(&completion))
	assert.Equal(t, "lesson-es-1", completion.LessonID)
	assert.Equal(t, float64(95), completion.Score)
}

func TestRecordProgressCompletionLatches(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID: "lesson-es-1", Completed: true, Score: 100,
	})
	require.NoError(t, err)

	progress, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID: "lesson-es-1", Completed: false, Score: 40,
	})
	require.NoError(t, err)
	assert.True(t, progress.Completed, "completion never un-latches")
}

func TestRecordProgressRequiresLessonID(t *testing.T) {
	svc, _, kicker := newTestService(t)

	_, err := svc.RecordProgress(context.Background(), RecordProgressInput{Score: 50})
	assert.ErrorIs(t, err, ErrLessonIDRequired)
	assert.Zero(t, kicker.kicks)
}

func TestRecordProgressInvalidScoreLeavesNoTrace(t *testing.T) {
	svc, localStore, kicker := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordProgress(ctx, RecordProgressInput{
		LessonID: "lesson-es-1",
		Score:    150,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProgressScoreRange)
	assert.Zero(t, kicker.kicks)

	// The rejected transaction committed neither the progress row nor an
	// action.
	progress, err := localStore.Progress().Get(ctx, "progress-lesson-es-1")
	require.NoError(t, err)
	assert.Nil(t, progress)

	count, err := localStore.Actions().CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecordVocabularyPractice(t *testing.T) {
	svc, localStore, kicker := newTestService(t)
	ctx := context.Background()

	progress, err := svc.RecordVocabularyPractice(ctx, VocabularyPracticeInput{
		LessonID:  "lesson-es-2",
		Words:     []string{"hola", "adiós", "gracias"},
		Correct:   2,
		TimeSpent: 45 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, progress.TimeSpent)
	assert.False(t, progress.Completed)
	assert.Equal(t, 1, kicker.kicks)

	actions, err := localStore.Actions().GetUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionVocabularyPractice, actions[0].Type)

	var payload struct {
		LessonID    string   `json:"lesson_id"`
		Words       []string `json:"words"`
		Correct     int      `json:"correct"`
		TimeSpentMS int64    `json:"time_spent_ms"`
	}
	require.NoError(t, actions[0].UnmarshalPayload(&payload))
	assert.Equal(t, []string{"hola", "adiós", "gracias"}, payload.Words)
	assert.Equal(t, 2, payload.Correct)
	assert.Equal(t, int64(45000), payload.TimeSpentMS)
}
