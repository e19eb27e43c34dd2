package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/lingosync/internal/api/shared"
	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/offline"
	"github.com/phrazzld/lingosync/internal/service"
)

// StatusHandler serves the UI status surface: the merged offline/sync status
// plus the control operations the presentation layer triggers.
type StatusHandler struct {
	facade      *offline.Facade
	progressSvc service.ProgressService
	logger      *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(
	facade *offline.Facade,
	progressSvc service.ProgressService,
	logger *slog.Logger,
) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		facade:      facade,
		progressSvc: progressSvc,
		logger:      logger.With(slog.String("component", "status_handler")),
	}
}

// Routes mounts the handler's endpoints on the given router.
func (h *StatusHandler) Routes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Post("/sync", h.ForceSync)
	r.Post("/lessons/{id}/preload", h.PreloadLesson)
	r.Post("/cache/clear", h.ClearCache)
	r.Post("/app/update", h.UpdateApp)
	r.Put("/connectivity", h.SetConnectivity)
	r.Post("/progress", h.RecordProgress)
	r.Post("/vocabulary", h.RecordVocabularyPractice)
}

// GetStatus handles GET /status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.facade.Status(r.Context()))
}

// ForceSync handles POST /sync: replay pending actions now and report the
// terminal outcome.
func (h *StatusHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.ForceSync(r.Context()); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SyncResponse{
		Status: h.facade.Status(r.Context()),
	})
}

// PreloadLesson handles POST /lessons/{id}/preload.
func (h *StatusHandler) PreloadLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "id")
	if lessonID == "" {
		HandleAPIError(w, r, domain.ErrInvalidID, "Lesson ID is required")
		return
	}

	lesson, err := h.facade.PreloadLesson(r.Context(), lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PreloadResponse{
		LessonID: lesson.ID,
		Level:    lesson.Level,
	})
}

// ClearCache handles POST /cache/clear: wipes local collections and the
// response cache.
func (h *StatusHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.ClearCache(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to clear local data")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.facade.Status(r.Context()))
}

// UpdateApp handles POST /app/update: activates a waiting cache version.
func (h *StatusHandler) UpdateApp(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.UpdateApp(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to apply update")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.facade.Status(r.Context()))
}

// SetConnectivity handles PUT /connectivity: the host shell forwards OS
// reachability changes here.
func (h *StatusHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	h.facade.SetOnline(r.Context(), *req.Online)
	shared.RespondWithJSON(w, r, http.StatusOK, h.facade.Status(r.Context()))
}

// RecordProgress handles POST /progress: the UI mutation path. The progress
// write and its replay action commit atomically before this returns.
func (h *StatusHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	progress, err := h.progressSvc.RecordProgress(r.Context(), service.RecordProgressInput{
		LessonID:  req.LessonID,
		Completed: req.Completed,
		Score:     req.Score,
		TimeSpent: millisToDuration(req.TimeSpentMS),
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, progressResponse(progress))
}

// RecordVocabularyPractice handles POST /vocabulary.
func (h *StatusHandler) RecordVocabularyPractice(w http.ResponseWriter, r *http.Request) {
	var req VocabularyPracticeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	progress, err := h.progressSvc.RecordVocabularyPractice(r.Context(), service.VocabularyPracticeInput{
		LessonID:  req.LessonID,
		Words:     req.Words,
		Correct:   req.Correct,
		TimeSpent: millisToDuration(req.TimeSpentMS),
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, progressResponse(progress))
}

func progressResponse(progress *domain.Progress) ProgressResponse {
	return ProgressResponse{
		LessonID:    progress.LessonID,
		Completed:   progress.Completed,
		Score:       progress.Score,
		TimeSpentMS: progress.TimeSpent.Milliseconds(),
		LastUpdated: progress.LastUpdated,
	}
}
