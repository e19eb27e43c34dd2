package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lingosync/internal/domain"
)

// Usage reports storage accounting in bytes. Implementations return the
// zero value when the host platform cannot report usage; EstimateUsage
// never fails.
type Usage struct {
	Used  uint64 `json:"used"`
	Quota uint64 `json:"quota"`
}

// LessonStore defines the interface for lesson persistence.
type LessonStore interface {
	// Put inserts or replaces a lesson keyed by its own ID.
	// It resolves only on durable commit and returns ErrWriteFailed
	// (wrapping the underlying reason) on transaction abort.
	Put(ctx context.Context, lesson *domain.Lesson) error

	// Get returns the lesson with the given ID, or nil when absent.
	// Absence is not an error.
	Get(ctx context.Context, id string) (*domain.Lesson, error)

	// GetByLevel returns all lessons at the given level.
	GetByLevel(ctx context.Context, level string) ([]*domain.Lesson, error)

	// GetByTag returns all lessons carrying the given tag. Tags are a
	// multi-valued index: one lesson appears under each of its tags.
	GetByTag(ctx context.Context, tag string) ([]*domain.Lesson, error)

	// GetAll returns every lesson. An empty slice is a valid success;
	// transaction errors surface as errors, never as an empty result.
	GetAll(ctx context.Context) ([]*domain.Lesson, error)

	// WithTx returns a LessonStore bound to the provided transaction.
	WithTx(tx *sql.Tx) LessonStore
}

// ProgressStore defines the interface for progress persistence.
type ProgressStore interface {
	// Put inserts or replaces a progress record keyed by its own ID.
	Put(ctx context.Context, progress *domain.Progress) error

	// Get returns the progress record with the given ID, or nil when absent.
	Get(ctx context.Context, id string) (*domain.Progress, error)

	// GetByLesson returns all progress records for a lesson.
	GetByLesson(ctx context.Context, lessonID string) ([]*domain.Progress, error)

	// GetAll returns every progress record, used for bulk hydration.
	GetAll(ctx context.Context) ([]*domain.Progress, error)

	// WithTx returns a ProgressStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ProgressStore
}

// MediaStore defines the interface for media asset persistence.
type MediaStore interface {
	// Put inserts or replaces a media asset keyed by its own ID.
	Put(ctx context.Context, asset *domain.MediaAsset) error

	// Get returns the asset with the given ID, or nil when absent.
	Get(ctx context.Context, id string) (*domain.MediaAsset, error)

	// GetByLesson returns all assets belonging to a lesson.
	GetByLesson(ctx context.Context, lessonID string) ([]*domain.MediaAsset, error)

	// GetByType returns all assets of the given type.
	GetByType(ctx context.Context, mediaType string) ([]*domain.MediaAsset, error)

	// WithTx returns a MediaStore bound to the provided transaction.
	WithTx(tx *sql.Tx) MediaStore
}

// ActionStore defines the interface for the pending-action log. It is the
// durable replay queue: rows are appended on local mutation, flipped to
// synced on remote acknowledgment, and removed only by ClearAll.
type ActionStore interface {
	// Append creates a new pending action with synced=false and assigns the
	// auto-incrementing ID, which it writes back into the record.
	Append(ctx context.Context, action *domain.PendingAction) error

	// GetUnsynced returns all actions with synced=false in ascending
	// ID/timestamp order. Callers replay them in exactly this order.
	GetUnsynced(ctx context.Context) ([]*domain.PendingAction, error)

	// CountUnsynced returns the number of actions awaiting replay.
	CountUnsynced(ctx context.Context) (int, error)

	// MarkSynced flips the synced flag for the given action. It is
	// idempotent: marking an already-synced action is a no-op. Returns
	// ErrActionNotFound when the row does not exist.
	MarkSynced(ctx context.Context, id int64) error

	// WithTx returns an ActionStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ActionStore
}

// LocalStore aggregates the collection stores with the whole-store
// operations that span all of them.
type LocalStore interface {
	Lessons() LessonStore
	Progress() ProgressStore
	Media() MediaStore
	Actions() ActionStore

	// ClearAll wipes every collection in a single transaction. Used for
	// explicit user-initiated reset; all-or-nothing across collections.
	ClearAll(ctx context.Context) error

	// EstimateUsage reports used and available bytes from the host
	// platform's storage accounting. It returns zeros when unsupported
	// and never fails.
	EstimateUsage(ctx context.Context) Usage

	// DB exposes the underlying handle for RunInTransaction.
	DB() *sql.DB

	// Close releases the underlying database handle.
	Close() error
}
