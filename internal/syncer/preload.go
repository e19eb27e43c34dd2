package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/lingosync/internal/domain"
)

// PreloadLesson downloads a lesson and its media for offline use and writes
// them to the local store. Media fetches go through the caching transport, so
// a later offline request for the same URL is served locally too.
//
// A media asset that fails to download is logged and skipped; the lesson
// itself still lands. Returns ErrOffline when the monitor reports offline.
func (o *Orchestrator) PreloadLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	if !o.online.IsOnline() {
		return nil, ErrOffline
	}

	content, err := o.remote.FetchLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("fetch lesson %q: %w", lessonID, err)
	}

	lesson := &domain.Lesson{
		ID:       content.ID,
		Level:    content.Level,
		Tags:     content.Tags,
		Content:  content.Content,
		StoredAt: time.Now().UTC(),
	}
	if err := lesson.Validate(); err != nil {
		return nil, fmt.Errorf("remote lesson %q: %w", lessonID, err)
	}
	if err := o.localStore.Lessons().Put(ctx, lesson); err != nil {
		return nil, err
	}

	for _, media := range content.Media {
		data, err := o.remote.FetchMedia(ctx, media.URL)
		if err != nil {
			o.logger.Warn("media preload skipped",
				"lesson_id", lessonID,
				"media_id", media.ID,
				"error", err)
			continue
		}
		asset := &domain.MediaAsset{
			ID:       media.ID,
			Type:     media.Type,
			LessonID: lesson.ID,
			Data:     data,
			StoredAt: time.Now().UTC(),
		}
		if err := o.localStore.Media().Put(ctx, asset); err != nil {
			return nil, err
		}
	}

	o.logger.Info("lesson preloaded",
		"lesson_id", lesson.ID,
		"media_count", len(content.Media))

	return lesson, nil
}
