package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rehacentrum/booking-engine/internal/http/handlers"
	httpmiddleware "github.com/rehacentrum/booking-engine/internal/http/middleware"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *handlers.WebhookHandler
	Catalog        *handlers.CatalogHandler
	Health         http.HandlerFunc
	MetricsHandler http.Handler

	WebhookJWTSecret   string
	OperatorToken      string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.Health(handlers.HealthInfo{Service: "booking-engine"})
	}
	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		if cfg.Webhook != nil {
			api.With(httpmiddleware.WebhookJWT(cfg.WebhookJWTSecret)).Post("/booking/webhook", cfg.Webhook.Handle)
		}
		if cfg.Catalog != nil {
			api.Get("/appointment-types", cfg.Catalog.AppointmentTypes)
			api.Get("/requirements/{type}", cfg.Catalog.Requirements)
			api.Get("/slots", cfg.Catalog.Slots)
			api.With(requireOperatorToken(cfg.OperatorToken)).Get("/logs", cfg.Catalog.Logs)
		}
	})

	return r
}
