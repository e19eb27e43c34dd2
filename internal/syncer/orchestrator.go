package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/events"
	"github.com/phrazzld/lingosync/internal/remote"
	"github.com/phrazzld/lingosync/internal/store"
)

// ErrOffline is returned by ForceSync when the connectivity monitor reports
// offline. A background Flush treats the same condition as a silent no-op.
var ErrOffline = errors.New("cannot sync while offline")

// Remote is the slice of the remote client the orchestrator needs.
type Remote interface {
	// ApplyAction presents one pending action to the remote system.
	ApplyAction(ctx context.Context, action *domain.PendingAction) error

	// FetchLesson downloads a lesson's content and media manifest.
	FetchLesson(ctx context.Context, lessonID string) (*remote.LessonContent, error)

	// FetchMedia downloads one media asset's bytes.
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// onlineChecker reports current connectivity; satisfied by
// *connectivity.Monitor.
type onlineChecker interface {
	IsOnline() bool
}

// Status is the orchestrator's externally visible state.
type Status struct {
	LastSyncTime   *time.Time `json:"last_sync_time"`
	PendingActions int        `json:"pending_actions"`
	SyncInProgress bool       `json:"sync_in_progress"`
}

// Config tunes the retry behavior.
type Config struct {
	// RetryBase is the delay after the first failed flush; it doubles per
	// consecutive failure.
	RetryBase time.Duration

	// RetryCap bounds the backoff growth.
	RetryCap time.Duration
}

// DefaultConfig returns the retry policy used when none is configured.
func DefaultConfig() Config {
	return Config{
		RetryBase: time.Second,
		RetryCap:  5 * time.Minute,
	}
}

// Orchestrator is the queuing/replay engine.
type Orchestrator struct {
	localStore store.LocalStore
	remote     Remote
	online     onlineChecker
	emitter    events.Emitter
	cfg        Config
	logger     *slog.Logger

	kick chan struct{}

	mu       sync.Mutex
	status   Status
	flushing bool
	failures int       // consecutive failed flush passes
	retryAt  time.Time // zero when no retry is scheduled
}

// New creates an Orchestrator. Call Run to start the background replay
// loop.
func New(
	localStore store.LocalStore,
	remoteClient Remote,
	online onlineChecker,
	emitter events.Emitter,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultConfig().RetryBase
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = DefaultConfig().RetryCap
	}
	return &Orchestrator{
		localStore: localStore,
		remote:     remoteClient,
		online:     online,
		emitter:    emitter,
		cfg:        cfg,
		logger:     logger.With("component", "sync_orchestrator"),
		// Buffered so an enqueue never blocks on the replay loop.
		kick: make(chan struct{}, 1),
	}
}

// Status returns a snapshot of the current sync state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Enqueue records a local mutation as a pending action and kicks an
// opportunistic flush. The append is durable before Enqueue returns.
func (o *Orchestrator) Enqueue(ctx context.Context, actionType domain.ActionType, payload any) (*domain.PendingAction, error) {
	action, err := domain.NewPendingAction(actionType, payload)
	if err != nil {
		return nil, err
	}
	if err := o.localStore.Actions().Append(ctx, action); err != nil {
		return nil, err
	}

	o.logger.Debug("action enqueued",
		"action_id", action.ID,
		"action_type", action.Type)

	o.Kick(ctx)
	return action, nil
}

// Kick refreshes the pending count and signals the replay loop. Callers
// that append actions through their own transaction use this instead of
// Enqueue.
func (o *Orchestrator) Kick(ctx context.Context) {
	o.refreshPending(ctx)
	select {
	case o.kick <- struct{}{}:
	default:
		// A flush signal is already queued.
	}
}

// Run drives scheduled retries and opportunistic flushes until the context
// is cancelled. It blocks; callers run it in its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	o.refreshPending(ctx)
	o.emitStatus(ctx)

	// Initial pass picks up actions left unsynced by a previous run.
	_ = o.flush(ctx)

	for {
		o.mu.Lock()
		retryAt := o.retryAt
		o.mu.Unlock()

		var timerC <-chan time.Time
		var timer *time.Timer
		if !retryAt.IsZero() {
			wait := time.Until(retryAt)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-o.kick:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}

		_ = o.flush(ctx)
	}
}

// HandleEvent implements events.Handler: a transition to online triggers a
// flush of whatever accumulated while disconnected.
func (o *Orchestrator) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeConnectivity {
		return nil
	}
	var payload events.ConnectivityPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("decode connectivity payload: %w", err)
	}
	if payload.Online {
		o.Kick(ctx)
	}
	return nil
}

// Flush replays unsynced actions if online; offline it is a silent no-op.
// Replay failures are swallowed into pending state here — the retry loop
// owns surfacing them.
func (o *Orchestrator) Flush(ctx context.Context) {
	_ = o.flush(ctx)
}

// ForceSync replays unsynced actions and surfaces the terminal outcome,
// including ErrOffline, for explicit user-triggered retries.
func (o *Orchestrator) ForceSync(ctx context.Context) error {
	if !o.online.IsOnline() {
		return ErrOffline
	}
	return o.flush(ctx)
}

// flush performs one replay pass. Concurrent calls coalesce: the second
// caller returns immediately while the first pass runs.
func (o *Orchestrator) flush(ctx context.Context) error {
	if !o.online.IsOnline() {
		// Drop any scheduled retry. The next online transition re-kicks the
		// flush; a retry timer left armed here would fire immediately and
		// spin the Run loop for as long as the device stays offline.
		o.mu.Lock()
		o.retryAt = time.Time{}
		o.mu.Unlock()
		return nil
	}

	o.mu.Lock()
	if o.flushing {
		o.mu.Unlock()
		return nil
	}
	o.flushing = true
	o.status.SyncInProgress = true
	o.mu.Unlock()
	o.emitStatus(ctx)

	err := o.replay(ctx)

	o.mu.Lock()
	o.flushing = false
	o.status.SyncInProgress = false
	if err == nil {
		now := time.Now().UTC()
		o.status.LastSyncTime = &now
		o.failures = 0
		o.retryAt = time.Time{}
	} else {
		o.failures++
		delay := o.backoff(o.failures)
		o.retryAt = time.Now().Add(delay)
		o.logger.Warn("flush failed, retry scheduled",
			"error", err,
			"consecutive_failures", o.failures,
			"retry_in", delay)
	}
	o.mu.Unlock()
	o.emitStatus(ctx)

	return err
}

// replay presents unsynced actions to the remote in creation order,
// stopping at the first failure so no action is ever skipped ahead of an
// earlier unsynced one.
func (o *Orchestrator) replay(ctx context.Context) error {
	actions, err := o.localStore.Actions().GetUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("load unsynced actions: %w", err)
	}

	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.remote.ApplyAction(ctx, action); err != nil {
			return fmt.Errorf("apply action %d: %w", action.ID, err)
		}
		if err := o.localStore.Actions().MarkSynced(ctx, action.ID); err != nil {
			// The remote has the action but the local flag didn't stick;
			// the next pass resends it. At-least-once delivery makes this
			// safe, but it is worth a loud log line.
			o.logger.Error("action applied remotely but not marked synced",
				"action_id", action.ID,
				"error", err)
			return err
		}

		o.mu.Lock()
		if o.status.PendingActions > 0 {
			o.status.PendingActions--
		}
		o.mu.Unlock()
		o.emitStatus(ctx)
	}

	return nil
}

// backoff returns the delay before retry attempt n (1-based), doubling per
// consecutive failure up to the configured cap.
func (o *Orchestrator) backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > 30 {
		n = 30 // avoid shift overflow; the cap applies long before this
	}
	delay := o.cfg.RetryBase << (n - 1)
	if delay > o.cfg.RetryCap || delay <= 0 {
		delay = o.cfg.RetryCap
	}
	return delay
}

// refreshPending reloads the pending count from the store.
func (o *Orchestrator) refreshPending(ctx context.Context) {
	count, err := o.localStore.Actions().CountUnsynced(ctx)
	if err != nil {
		o.logger.Error("failed to count pending actions", "error", err)
		return
	}
	o.mu.Lock()
	o.status.PendingActions = count
	o.mu.Unlock()
}

// emitStatus publishes the current status snapshot.
func (o *Orchestrator) emitStatus(ctx context.Context) {
	o.mu.Lock()
	payload := events.SyncStatusPayload{
		LastSyncTime:   o.status.LastSyncTime,
		PendingActions: o.status.PendingActions,
		SyncInProgress: o.status.SyncInProgress,
	}
	o.mu.Unlock()

	event, err := events.New(events.TypeSyncStatus, payload)
	if err != nil {
		o.logger.Error("failed to build status event", "error", err)
		return
	}
	if err := o.emitter.Emit(ctx, event); err != nil {
		o.logger.Error("failed to emit status event", "error", err)
	}
}
