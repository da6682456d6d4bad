package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rehacentrum/booking-engine/cmd/mainconfig"
	"github.com/rehacentrum/booking-engine/internal/api/router"
	appconfig "github.com/rehacentrum/booking-engine/internal/config"
	"github.com/rehacentrum/booking-engine/internal/http/handlers"
	"github.com/rehacentrum/booking-engine/internal/messaging"
	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
	"github.com/rehacentrum/booking-engine/internal/webhooklog"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"calendar_backend", cfg.CalendarBackend,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metricsHandler, schedMetrics := setupMetrics(cfg.MetricsEnabled)

	engine, err := mainconfig.BuildEngine(context.Background(), cfg, logger, schedMetrics)
	if err != nil {
		logger.Error("failed to build scheduling engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	notifier := setupNotifier(cfg, schedMetrics, logger)
	calls := setupWebhookLog(engine.Redis, cfg.WebhookLogSize)
	if cfg.WebhookJWTSecret == "" {
		logger.Warn("WEBHOOK_JWT_SECRET not set; booking webhook is unauthenticated")
	}

	routerCfg := &router.Config{
		Logger: logger,
		Webhook: handlers.NewWebhookHandler(handlers.WebhookConfig{
			Engine:   engine.Service,
			Notifier: notifier,
			Calls:    calls,
			Metrics:  schedMetrics,
			Logger:   logger,
		}),
		Catalog: handlers.NewCatalogHandler(engine.Service, calls, logger),
		Health: handlers.Health(handlers.HealthInfo{
			Service:         "booking-engine",
			Env:             cfg.Env,
			CalendarBackend: cfg.CalendarBackend,
			SMSEnabled:      notifier.Enabled(),
			SlotLock:        engine.Redis != nil,
		}),
		MetricsHandler:     metricsHandler,
		WebhookJWTSecret:   cfg.WebhookJWTSecret,
		OperatorToken:      cfg.OperatorToken,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns the /metrics handler and the scheduling collectors
// registered on a private registry. Both are nil when metrics are off.
func setupMetrics(enabled bool) (http.Handler, *metrics.SchedulingMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// setupNotifier returns a Twilio-backed notifier, or a disabled one when
// SMS is not fully configured.
func setupNotifier(cfg *appconfig.Config, m *metrics.SchedulingMetrics, logger *logging.Logger) *messaging.Notifier {
	if !cfg.SMSEnabled() {
		if cfg.TwilioEnabled {
			logger.Warn("TWILIO_ENABLED is set but credentials are incomplete; SMS disabled")
		}
		return messaging.NewNotifier(nil, m, logger)
	}
	sender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger.Component("twilio"))
	logger.Info("sms notifications enabled", "from", cfg.TwilioFromNumber)
	return messaging.NewNotifier(sender, m, logger)
}

// setupWebhookLog shares the call history through Redis when available.
func setupWebhookLog(client *redis.Client, size int) webhooklog.Log {
	if client == nil {
		return webhooklog.NewMemory(size)
	}
	return webhooklog.NewRedis(client, "", size)
}
