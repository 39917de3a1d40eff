package middleware

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/platform/logger"
)

// RequestIDHeader carries the correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

// NewTraceMiddleware returns middleware that assigns every request a
// correlation ID and puts a request-scoped logger into its context.
//
// The ID is taken from the X-Request-ID header, then from chi's RequestID
// middleware, and generated otherwise. It is echoed in the response header.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(RequestIDHeader)
			if traceID == "" {
				traceID = chimw.GetReqID(r.Context())
			}
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx := logger.WithRequestID(r.Context(), traceID)
			ctx = logger.WithLogger(ctx, base)
			w.Header().Set(RequestIDHeader, traceID)

			logger.FromContext(ctx).Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
