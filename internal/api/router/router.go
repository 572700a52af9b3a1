package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sazaba/wppai-server-sub000/internal/appointments"
	"github.com/sazaba/wppai-server-sub000/internal/catalog"
	"github.com/sazaba/wppai-server-sub000/internal/conversation"
	httpmiddleware "github.com/sazaba/wppai-server-sub000/internal/http/middleware"
	"github.com/sazaba/wppai-server-sub000/internal/tenantcfg"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	ScheduleHandler     *tenantcfg.Handler
	CatalogHandler      *catalog.Handler
	AppointmentsHandler *appointments.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string

	// Per-IP rate limit on the conversational API; disabled when zero.
	RateLimitPerSec float64
	RateLimitBurst  int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped conversational API
	if cfg.ConversationHandler != nil {
		r.Group(func(api chi.Router) {
			if cfg.RateLimitPerSec > 0 {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
			}
			api.Use(requireOrgID)
			api.Mount("/conversations", cfg.ConversationHandler.Routes())
		})
	}

	// Admin routes, JWT-protected
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.ScheduleHandler != nil {
			admin.Mount("/schedule", cfg.ScheduleHandler.Routes())
		}
		if cfg.CatalogHandler != nil {
			admin.Mount("/catalog", cfg.CatalogHandler.Routes())
		}
		if cfg.AppointmentsHandler != nil {
			admin.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}
