package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/lexis/internal/api/shared"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/redact"
	"github.com/phrazzld/lexis/internal/service/progress"
)

// DefaultDueLimit is the page size of GET /api/reviews/due without a limit.
const DefaultDueLimit = 20

// ProgressHandler serves the review scheduler over HTTP.
type ProgressHandler struct {
	scheduler progress.ReviewScheduler
	logger    *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(scheduler progress.ReviewScheduler, logger *slog.Logger) *ProgressHandler {
	if scheduler == nil {
		panic("scheduler cannot be nil for ProgressHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for ProgressHandler")
	}
	return &ProgressHandler{
		scheduler: scheduler,
		logger:    logger.With(slog.String("component", "progress_handler")),
	}
}

// RecordReview handles POST /api/words/{id}/reviews.
func (h *ProgressHandler) RecordReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, wordID, ok := handleLearnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req RecordReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.scheduler.RecordReview(r.Context(), learnerID, wordID, *req.Correct)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record review")
		return
	}

	log.Debug("review recorded",
		slog.String("learner_id", learnerID.String()),
		slog.String("word_id", wordID.String()),
		slog.String("tier", string(p.Tier)))
	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{Progress: p})
}

// GetProgress handles GET /api/words/{id}/progress.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, wordID, ok := handleLearnerAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	p, err := h.scheduler.GetProgress(r.Context(), learnerID, wordID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{Progress: p})
}

// DueForReview handles GET /api/reviews/due?limit&offset&topic_id.
func (h *ProgressHandler) DueForReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r, log)
	if !ok {
		return
	}

	limit, err := getQueryInt(r, "limit", DefaultDueLimit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, validationMessage(err), err)
		return
	}
	offset, err := getQueryInt(r, "offset", 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, validationMessage(err), err)
		return
	}
	topicID, err := getQueryUUID(r, "topic_id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, validationMessage(err), err)
		return
	}

	page, err := h.scheduler.DueForReviewPage(r.Context(), learnerID, progress.DueQuery{
		TopicID: topicID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due words")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// CreateSession handles POST /api/sessions.
func (h *ProgressHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r, log)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	mode, err := domain.ParseStudyMode(req.Mode)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.scheduler.BuildStudySession(r.Context(), learnerID, req.TopicID, mode, req.WordCount)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build study session")
		return
	}
	if items == nil {
		items = []domain.StudyItem{}
	}

	log.Debug("study session built",
		slog.String("learner_id", learnerID.String()),
		slog.String("mode", string(mode)),
		slog.Int("items", len(items)))
	shared.RespondWithJSON(w, r, http.StatusOK, SessionResponse{Items: items})
}

// SubmitSessionResults handles POST /api/sessions/results.
func (h *ProgressHandler) SubmitSessionResults(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r, log)
	if !ok {
		return
	}

	var req SubmitResultsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	summary, err := h.scheduler.SubmitSessionResults(r.Context(), learnerID, req.Results)
	if err != nil && summary != nil {
		log.Warn("session results partially saved",
			slog.Int("saved", summary.Total),
			slog.Int("failed", len(summary.FailedWordIDs)),
			slog.String("error", redact.Error(err)))
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, PartialResultsResponse{
			Error:   "Submission interrupted, some results were not saved",
			TraceID: shared.GetTraceID(r.Context()),
			Summary: summary,
		})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit session results")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// GetStatistics handles GET /api/statistics.
func (h *ProgressHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearner(w, r, log)
	if !ok {
		return
	}

	stats, err := h.scheduler.GetLearnerStatistics(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
