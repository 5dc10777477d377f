package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/gifgrab/internal/api/handler"
	mw "github.com/iconidentify/gifgrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured. An empty
// apiKey leaves /api/v1 open.
func NewRouter(
	processHandler *handler.ProcessHandler,
	jobHandler *handler.JobHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
	metricsHandler http.Handler,
	apiKey string,
	requestTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	// CORS for the browser front-end
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Web UI
	r.Get("/", uiHandler.Index)

	// Synchronous processing
	r.Post("/process-twitter", processHandler.ProcessTwitter)
	r.Post("/process-youtube", processHandler.ProcessYouTube)
	r.Get("/downloads/{filename}", processHandler.Download)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if apiKey != "" {
			r.Use(mw.APIKeyAuth(apiKey))
		}

		r.Post("/jobs", jobHandler.Submit)
		r.Get("/jobs/{jobID}", jobHandler.Get)
		r.Get("/downloads/{filename}", processHandler.Download)
	})

	return r
}
