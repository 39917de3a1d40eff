package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/platform/logger"
)

// ContextKey is the type of request context keys set by the API layer.
type ContextKey string

// LearnerIDContextKey is the context key for the authenticated learner ID.
const LearnerIDContextKey ContextKey = "learnerID"

// WithLearnerID returns a copy of ctx carrying the authenticated learner.
func WithLearnerID(ctx context.Context, learnerID uuid.UUID) context.Context {
	return context.WithValue(ctx, LearnerIDContextKey, learnerID)
}

// LearnerID returns the authenticated learner carried by ctx.
// The boolean is false when no learner, or the nil UUID, is present.
func LearnerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(LearnerIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetTraceID returns the request correlation ID, or "".
func GetTraceID(ctx context.Context) string {
	return logger.RequestID(ctx)
}
