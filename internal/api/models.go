package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
)

// RecordReviewRequest defines the payload for POST /api/words/{id}/reviews.
type RecordReviewRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

// CreateSessionRequest defines the payload for POST /api/sessions.
// Range checks on word_count are left to the scheduler.
type CreateSessionRequest struct {
	TopicID   *uuid.UUID `json:"topic_id,omitempty"`
	Mode      string     `json:"mode"       validate:"required,oneof=new review mixed"`
	WordCount int        `json:"word_count" validate:"required"`
}

// SessionResponse is the study session snapshot.
type SessionResponse struct {
	Items []domain.StudyItem `json:"items"`
}

// SubmitResultsRequest defines the payload for POST /api/sessions/results.
type SubmitResultsRequest struct {
	Results []domain.ReviewResult `json:"results" validate:"required,dive"`
}

// PartialResultsResponse reports a submission that stopped part way. The
// summary covers the results saved before it stopped; the rest are listed in
// its failed_word_ids.
type PartialResultsResponse struct {
	Error   string                 `json:"error"`
	TraceID string                 `json:"trace_id,omitempty"`
	Summary *domain.SessionSummary `json:"summary"`
}

// ProgressResponse wraps a single progress record.
type ProgressResponse struct {
	Progress *domain.WordProgress `json:"progress"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
