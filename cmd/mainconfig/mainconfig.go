// Package mainconfig builds the scheduling engine from configuration so
// every binary shares the same wiring.
package mainconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	appconfig "github.com/rehacentrum/booking-engine/internal/config"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
	"github.com/rehacentrum/booking-engine/internal/slotlock"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// Engine is the scheduling stack shared by the server and the CLI.
type Engine struct {
	Service  *scheduling.Service
	Store    calendar.Store
	Holidays *holiday.Calendar
	Location *time.Location
	// Redis is nil unless REDIS_URL is set.
	Redis *redis.Client
}

// Close releases the Redis connection.
func (e *Engine) Close() error {
	if e == nil || e.Redis == nil {
		return nil
	}
	return e.Redis.Close()
}

// LoadCatalog returns the stock types, overridden by APPOINTMENT_TYPES_FILE.
func LoadCatalog(cfg *appconfig.Config) (*apptype.Catalog, error) {
	if cfg.AppointmentTypesFile == "" {
		return apptype.DefaultCatalog(), nil
	}
	catalog, err := apptype.LoadFile(cfg.AppointmentTypesFile, apptype.DefaultTypes())
	if err != nil {
		return nil, fmt.Errorf("load appointment types: %w", err)
	}
	return catalog, nil
}

// NewStore builds the configured calendar backend.
func NewStore(cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) (calendar.Store, error) {
	switch cfg.CalendarBackend {
	case "memory":
		logger.Warn("using in-memory calendar; bookings are lost on restart")
		return calendar.NewMemoryStore(), nil
	case "google":
		gcfg := calendar.GoogleConfig{
			CalendarID:      cfg.GoogleCalendarID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Subject:         cfg.GoogleImpersonateSubject,
			Location:        loc,
		}
		if cfg.GoogleCredentialsJSON != "" {
			gcfg.CredentialsJSON = []byte(cfg.GoogleCredentialsJSON)
		}
		return calendar.NewGoogleStore(gcfg, logger.Component("calendar"))
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.CalendarBackend)
	}
}

// NewHolidays builds the working-day oracle.
func NewHolidays(cfg *appconfig.Config) *holiday.Calendar {
	if !cfg.HolidaysEnabled {
		return holiday.NewCalendar(holiday.WithHolidaysDisabled())
	}
	return holiday.NewCalendar()
}

// ConnectRedis parses url and pings the server. An empty url returns nil.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// BuildEngine wires the scheduling service from configuration. m may be nil.
// An unreachable Redis is logged and the engine runs without the slot lock.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, m *metrics.SchedulingMetrics) (*Engine, error) {
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg, loc, logger)
	if err != nil {
		return nil, err
	}
	store = calendar.Instrument(store, m)
	holidays := NewHolidays(cfg)

	engine := &Engine{Store: store, Holidays: holidays, Location: loc}
	opts := []scheduling.Option{
		scheduling.WithLogger(logger.Component("scheduling")),
		scheduling.WithMetrics(m),
	}
	client, err := ConnectRedis(ctx, cfg.RedisURL)
	switch {
	case err != nil:
		logger.Warn("redis unavailable, slot lock disabled", "error", err)
	case client != nil:
		engine.Redis = client
		opts = append(opts, scheduling.WithLocker(slotlock.NewRedisLocker(client, cfg.SlotLockTTL)))
		logger.Info("slot lock enabled", "ttl", cfg.SlotLockTTL.String())
	}

	sc := scheduling.DefaultConfig(loc)
	sc.Rules.MinAdvance = cfg.MinAdvanceBooking
	sc.Rules.MaxAdvance = cfg.MaxAdvanceBooking
	sc.VacationKeyword = cfg.VacationKeyword
	if cfg.AlternativeDays > 0 {
		sc.AlternativeDays = cfg.AlternativeDays
	}
	engine.Service = scheduling.NewService(sc, catalog, store, holidays, opts...)
	return engine, nil
}
