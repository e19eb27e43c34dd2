package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/store"
)

// ActionStore implements store.ActionStore using SQLite. The table is an
// append log: the auto-incrementing rowid fixes replay order, and only the
// synced flag ever changes after insert.
type ActionStore struct {
	db store.DBTX
}

// NewActionStore creates an ActionStore on the given handle.
func NewActionStore(db store.DBTX) *ActionStore {
	return &ActionStore{db: db}
}

// WithTx returns an ActionStore bound to the provided transaction.
func (s *ActionStore) WithTx(tx *sql.Tx) store.ActionStore {
	return &ActionStore{db: tx}
}

// Append persists a new pending action and writes the assigned ID back into
// the record.
func (s *ActionStore) Append(ctx context.Context, action *domain.PendingAction) error {
	if !action.Type.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidActionType, action.Type)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO pending_actions (type, payload, timestamp, synced) VALUES (?, ?, ?, ?)",
		string(action.Type),
		string(action.Payload),
		toMillis(action.Timestamp),
		action.Synced,
	)
	if err != nil {
		return fmt.Errorf("%w: append action: %v", store.ErrWriteFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: read action id: %v", store.ErrWriteFailed, err)
	}
	action.ID = id
	return nil
}

// GetUnsynced returns all actions awaiting replay in ascending ID order,
// which by construction is non-decreasing timestamp order.
func (s *ActionStore) GetUnsynced(ctx context.Context) ([]*domain.PendingAction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, payload, timestamp, synced FROM pending_actions WHERE synced = 0 ORDER BY id ASC")
	if err != nil {
		return nil, store.NewStoreError("pending_actions", "get_unsynced", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	actions := make([]*domain.PendingAction, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, store.NewStoreError("pending_actions", "get_unsynced", "scan failed", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("pending_actions", "get_unsynced", "iterate failed", err)
	}
	return actions, nil
}

// CountUnsynced returns the number of actions awaiting replay.
func (s *ActionStore) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pending_actions WHERE synced = 0").Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("pending_actions", "count_unsynced", "query failed", err)
	}
	return count, nil
}

// MarkSynced flips the synced flag for the given action. Marking an
// already-synced action again is a no-op success; a missing row returns
// store.ErrActionNotFound, which indicates a defect elsewhere since actions
// are only removed by a full reset.
func (s *ActionStore) MarkSynced(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE pending_actions SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: mark action synced: %v", store.ErrWriteFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: read rows affected: %v", store.ErrWriteFailed, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", store.ErrActionNotFound, id)
	}
	return nil
}

func scanAction(row rowScanner) (*domain.PendingAction, error) {
	var (
		action     domain.PendingAction
		actionType string
		payload    string
		timestamp  int64
	)
	if err := row.Scan(&action.ID, &actionType, &payload, &timestamp, &action.Synced); err != nil {
		return nil, err
	}
	action.Type = domain.ActionType(actionType)
	action.Payload = []byte(payload)
	action.Timestamp = fromMillis(timestamp)
	return &action, nil
}
