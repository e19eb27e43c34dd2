package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/store"
)

// MediaStore implements store.MediaStore using SQLite.
type MediaStore struct {
	db store.DBTX
}

// NewMediaStore creates a MediaStore on the given handle.
func NewMediaStore(db store.DBTX) *MediaStore {
	return &MediaStore{db: db}
}

// WithTx returns a MediaStore bound to the provided transaction.
func (s *MediaStore) WithTx(tx *sql.Tx) store.MediaStore {
	return &MediaStore{db: tx}
}

// Put inserts or replaces a media asset keyed by its own ID. Assets are
// immutable in practice; replacement only happens when a preload re-fetches
// the same asset.
func (s *MediaStore) Put(ctx context.Context, asset *domain.MediaAsset) error {
	if err := asset.Validate(); err != nil {
		return err
	}

	const upsertSQL = `
		INSERT INTO media_assets (id, type, lesson_id, data, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			lesson_id = excluded.lesson_id,
			data = excluded.data,
			stored_at = excluded.stored_at
	`
	if _, err := s.db.ExecContext(ctx, upsertSQL,
		asset.ID,
		asset.Type,
		asset.LessonID,
		asset.Data,
		toMillis(asset.StoredAt),
	); err != nil {
		return fmt.Errorf("%w: upsert media asset: %v", store.ErrWriteFailed, err)
	}
	return nil
}

// Get returns the asset with the given ID, or nil when absent.
func (s *MediaStore) Get(ctx context.Context, id string) (*domain.MediaAsset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, type, lesson_id, data, stored_at FROM media_assets WHERE id = ?", id)

	asset, err := scanMediaAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.NewStoreError("media_assets", "get", "query failed", err)
	}
	return asset, nil
}

// GetByLesson returns all assets belonging to a lesson.
func (s *MediaStore) GetByLesson(ctx context.Context, lessonID string) ([]*domain.MediaAsset, error) {
	return s.queryAssets(ctx,
		"SELECT id, type, lesson_id, data, stored_at FROM media_assets WHERE lesson_id = ? ORDER BY id",
		lessonID)
}

// GetByType returns all assets of the given type.
func (s *MediaStore) GetByType(ctx context.Context, mediaType string) ([]*domain.MediaAsset, error) {
	return s.queryAssets(ctx,
		"SELECT id, type, lesson_id, data, stored_at FROM media_assets WHERE type = ? ORDER BY id",
		mediaType)
}

func (s *MediaStore) queryAssets(ctx context.Context, query string, args ...any) ([]*domain.MediaAsset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("media_assets", "query", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	assets := make([]*domain.MediaAsset, 0)
	for rows.Next() {
		asset, err := scanMediaAsset(rows)
		if err != nil {
			return nil, store.NewStoreError("media_assets", "query", "scan failed", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("media_assets", "query", "iterate failed", err)
	}
	return assets, nil
}

func scanMediaAsset(row rowScanner) (*domain.MediaAsset, error) {
	var (
		asset    domain.MediaAsset
		storedAt int64
	)
	if err := row.Scan(&asset.ID, &asset.Type, &asset.LessonID, &asset.Data, &storedAt); err != nil {
		return nil, err
	}
	asset.StoredAt = fromMillis(storedAt)
	return &asset, nil
}
