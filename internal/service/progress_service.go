package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/platform/logger"
	"github.com/phrazzld/lingosync/internal/store"
)

// SyncKicker signals the sync orchestrator that new pending actions exist.
// Satisfied by *syncer.Orchestrator.
type SyncKicker interface {
	Kick(ctx context.Context)
}

// RecordProgressInput carries one learning interaction.
type RecordProgressInput struct {
	LessonID  string        `json:"lesson_id" validate:"required"`
	Completed bool          `json:"completed"`
	Score     float64       `json:"score" validate:"gte=0,lte=100"`
	TimeSpent time.Duration `json:"time_spent_ms"`
}

// VocabularyPracticeInput carries one vocabulary drill result.
type VocabularyPracticeInput struct {
	LessonID  string        `json:"lesson_id" validate:"required"`
	Words     []string      `json:"words"`
	Correct   int           `json:"correct"`
	TimeSpent time.Duration `json:"time_spent_ms"`
}

// ProgressService records learning interactions locally and queues them for
// replay to the remote system.
type ProgressService interface {
	// RecordProgress upserts the lesson's progress record and appends the
	// matching pending action(s) in one transaction, then kicks a flush.
	RecordProgress(ctx context.Context, input RecordProgressInput) (*domain.Progress, error)

	// RecordVocabularyPractice accumulates practice time onto the lesson's
	// progress record and appends a vocabulary_practice action, in one
	// transaction.
	RecordVocabularyPractice(ctx context.Context, input VocabularyPracticeInput) (*domain.Progress, error)
}

type progressServiceImpl struct {
	localStore store.LocalStore
	kicker     SyncKicker
	logger     *slog.Logger
}

// NewProgressService creates a ProgressService.
// It returns an error if any of the required dependencies are nil.
func NewProgressService(
	localStore store.LocalStore,
	kicker SyncKicker,
	logger *slog.Logger,
) (ProgressService, error) {
	if localStore == nil {
		return nil, NewProgressServiceError("init", "localStore cannot be nil", domain.ErrValidation)
	}
	if kicker == nil {
		return nil, NewProgressServiceError("init", "kicker cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &progressServiceImpl{
		localStore: localStore,
		kicker:     kicker,
		logger:     logger.With(slog.String("component", "progress_service")),
	}, nil
}

// progressID derives the progress row key from the lesson, so repeat
// interactions with one lesson keep overwriting the same record.
func progressID(lessonID string) string {
	return "progress-" + lessonID
}

// RecordProgress implements ProgressService.RecordProgress.
func (s *progressServiceImpl) RecordProgress(ctx context.Context, input RecordProgressInput) (*domain.Progress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if input.LessonID == "" {
		return nil, ErrLessonIDRequired
	}

	var progress *domain.Progress
	err := store.RunInTransaction(ctx, s.localStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txProgress := s.localStore.Progress().WithTx(tx)
		txActions := s.localStore.Actions().WithTx(tx)

		var err error
		progress, err = s.upsertProgress(ctx, txProgress, input.LessonID, func(p *domain.Progress) {
			p.Record(input.Completed, input.Score, input.TimeSpent)
		})
		if err != nil {
			return err
		}

		action, err := domain.NewPendingAction(domain.ActionProgressUpdate, progressActionPayload{
			LessonID:    progress.LessonID,
			Completed:   progress.Completed,
			Score:       progress.Score,
			TimeSpentMS: progress.TimeSpent.Milliseconds(),
		})
		if err != nil {
			return err
		}
		if err := txActions.Append(ctx, action); err != nil {
			return err
		}

		// Completion gets its own action so the remote can award it even if
		// it coalesces ordinary progress updates.
		if input.Completed {
			completion, err := domain.NewPendingAction(domain.ActionLessonCompletion, completionActionPayload{
				LessonID: progress.LessonID,
				Score:    progress.Score,
			})
			if err != nil {
				return err
			}
			if err := txActions.Append(ctx, completion); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewProgressServiceError("record_progress", "transaction failed", err)
	}

	log.Debug("progress recorded",
		slog.String("lesson_id", input.LessonID),
		slog.Bool("completed", progress.Completed),
		slog.Float64("score", progress.Score))

	s.kicker.Kick(ctx)
	return progress, nil
}

// RecordVocabularyPractice implements ProgressService.RecordVocabularyPractice.
func (s *progressServiceImpl) RecordVocabularyPractice(ctx context.Context, input VocabularyPracticeInput) (*domain.Progress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if input.LessonID == "" {
		return nil, ErrLessonIDRequired
	}

	var progress *domain.Progress
	err := store.RunInTransaction(ctx, s.localStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txProgress := s.localStore.Progress().WithTx(tx)
		txActions := s.localStore.Actions().WithTx(tx)

		var err error
		progress, err = s.upsertProgress(ctx, txProgress, input.LessonID, func(p *domain.Progress) {
			p.Record(false, p.Score, input.TimeSpent)
		})
		if err != nil {
			return err
		}

		action, err := domain.NewPendingAction(domain.ActionVocabularyPractice, vocabularyActionPayload{
			LessonID:    input.LessonID,
			Words:       input.Words,
			Correct:     input.Correct,
			TimeSpentMS: input.TimeSpent.Milliseconds(),
		})
		if err != nil {
			return err
		}
		return txActions.Append(ctx, action)
	})
	if err != nil {
		return nil, NewProgressServiceError("record_vocabulary_practice", "transaction failed", err)
	}

	log.Debug("vocabulary practice recorded",
		slog.String("lesson_id", input.LessonID),
		slog.Int("word_count", len(input.Words)))

	s.kicker.Kick(ctx)
	return progress, nil
}

// upsertProgress loads the lesson's progress record (creating it on first
// interaction), applies the mutation, and writes it back.
func (s *progressServiceImpl) upsertProgress(
	ctx context.Context,
	progressStore store.ProgressStore,
	lessonID string,
	mutate func(*domain.Progress),
) (*domain.Progress, error) {
	progress, err := progressStore.Get(ctx, progressID(lessonID))
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress, err = domain.NewProgress(progressID(lessonID), lessonID)
		if err != nil {
			return nil, err
		}
	}
	mutate(progress)
	if err := progressStore.Put(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// progressActionPayload is the wire body of a progress_update action.
type progressActionPayload struct {
	LessonID    string  `json:"lesson_id"`
	Completed   bool    `json:"completed"`
	Score       float64 `json:"score"`
	TimeSpentMS int64   `json:"time_spent_ms"`
}

// completionActionPayload is the wire body of a lesson_completion action.
type completionActionPayload struct {
	LessonID string  `json:"lesson_id"`
	Score    float64 `json:"score"`
}

// vocabularyActionPayload is the wire body of a vocabulary_practice action.
type vocabularyActionPayload struct {
	LessonID    string   `json:"lesson_id"`
	Words       []string `json:"words"`
	Correct     int      `json:"correct"`
	TimeSpentMS int64    `json:"time_spent_ms"`
}
