package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/russhil/backend-parchi/internal/http/middleware"
	"github.com/russhil/backend-parchi/internal/parchi"
	"github.com/russhil/backend-parchi/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ParchiHandler      *parchi.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Upload throttling, requests per window per client IP.
	UploadRateLimit  int
	UploadRateWindow time.Duration

	// Health endpoint details.
	VisionModel  string
	AIConfigured bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck(cfg))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Clinic-scoped intake endpoints
	if cfg.ParchiHandler != nil {
		r.Group(func(clinic chi.Router) {
			clinic.Use(clinicScope)
			clinic.Route("/parchi", func(pr chi.Router) {
				if cfg.UploadRateLimit > 0 && cfg.UploadRateWindow > 0 {
					throttled := pr.With(httpmiddleware.RateLimit(cfg.UploadRateLimit, cfg.UploadRateWindow))
					throttled.Post("/upload", cfg.ParchiHandler.Upload)
				} else {
					pr.Post("/upload", cfg.ParchiHandler.Upload)
				}
				pr.Post("/process", cfg.ParchiHandler.Process)
			})
		})
	}

	return r
}

func healthCheck(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "healthy",
			"model":         cfg.VisionModel,
			"ai_configured": cfg.AIConfigured,
		})
	}
}
