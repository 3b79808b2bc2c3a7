// api/internal/api/router/router.go
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"reportvault/api/internal/api/handlers"
	vault_middleware "reportvault/api/internal/api/middleware"
	"reportvault/api/internal/core/services"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins    []string
	ReportHandler     *handlers.ReportHandler
	AssessmentHandler *handlers.AssessmentHandler
	HealthHandler     *handlers.HealthHandler
	AuthMiddleware    *vault_middleware.AuthMiddleware
	APILimiter        *vault_middleware.APILimiter
	MetricsHandler    http.Handler
	Logger            *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(vault_middleware.SecurityLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(vault_middleware.SecurityHeaders)

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		// 🛡️ In-memory token bucket for every API route
		if cfg.APILimiter != nil {
			r.Use(cfg.APILimiter.Handler)
		}

		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Remaining"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		// ---------------------------------------------------------------------
		// Consumer Routes (capability token is the credential)
		// ---------------------------------------------------------------------
		r.Get("/reports/{reportId}/download", cfg.ReportHandler.Download)

		// ---------------------------------------------------------------------
		// Producer Routes (Requires a Valid Service Token)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireServiceToken)

			r.With(vault_middleware.RequireScope(services.ScopeReportsWrite)).
				Post("/assessments/{assessmentId}/report", cfg.ReportHandler.Publish)

			r.With(vault_middleware.RequireScope(services.ScopeReportsDelete)).
				Delete("/reports/{reportId}", cfg.ReportHandler.Delete)

			r.With(vault_middleware.RequireScope(services.ScopeAssessmentsWrite)).
				With(vault_middleware.MaxBytes(1_048_576)).
				Post("/assessments", cfg.AssessmentHandler.Save)

			r.With(vault_middleware.RequireScope(services.ScopeAssessmentsRead)).
				Get("/assessments/{assessmentId}", cfg.AssessmentHandler.Get)
		})
	})

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Check)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
