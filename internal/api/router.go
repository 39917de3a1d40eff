package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/lexis/internal/api/middleware"
	"github.com/phrazzld/lexis/internal/api/shared"
	"github.com/phrazzld/lexis/internal/service/auth"
	"github.com/phrazzld/lexis/internal/service/progress"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestTimeout bounds every API request.
const RequestTimeout = 30 * time.Second

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Scheduler progress.ReviewScheduler
	Tokens    auth.TokenService
	Logger    *slog.Logger
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	progressHandler := NewProgressHandler(cfg.Scheduler, cfg.Logger)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Tokens)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewTraceMiddleware(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(RequestTimeout))
		r.Use(authMiddleware.Authenticate)

		r.Post("/words/{id}/reviews", progressHandler.RecordReview)
		r.Get("/words/{id}/progress", progressHandler.GetProgress)
		r.Get("/reviews/due", progressHandler.DueForReview)
		r.Post("/sessions", progressHandler.CreateSession)
		r.Post("/sessions/results", progressHandler.SubmitSessionResults)
		r.Get("/statistics", progressHandler.GetStatistics)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)

	return r
}
