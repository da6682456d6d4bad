package mainconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	appconfig "github.com/rehacentrum/booking-engine/internal/config"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

func memoryConfig() *appconfig.Config {
	return &appconfig.Config{
		ClinicTimezone:    "Europe/Bratislava",
		CalendarBackend:   "memory",
		MinAdvanceBooking: time.Hour,
		MaxAdvanceBooking: 720 * time.Hour,
		VacationKeyword:   "DOVOLENKA",
		HolidaysEnabled:   true,
		AlternativeDays:   5,
		SlotLockTTL:       5 * time.Second,
	}
}

func TestBuildEngineMemory(t *testing.T) {
	engine, err := BuildEngine(context.Background(), memoryConfig(), logging.New("error"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	assert.Nil(t, engine.Redis)
	assert.Equal(t, "Europe/Bratislava", engine.Location.String())
	_, ok := engine.Store.(*calendar.MemoryStore)
	assert.True(t, ok, "nil metrics should leave the store unwrapped")
	assert.Len(t, engine.Service.Catalog().All(), 5)
}

func TestBuildEngineWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	engine, err := BuildEngine(context.Background(), cfg, logging.New("error"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	require.NotNil(t, engine.Redis)
}

func TestBuildEngineUnreachableRedisFallsBack(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	engine, err := BuildEngine(context.Background(), cfg, logging.New("error"), nil)
	require.NoError(t, err)
	assert.Nil(t, engine.Redis)
}

func TestBuildEngineRejectsBadBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.CalendarBackend = "outlook"
	_, err := BuildEngine(context.Background(), cfg, nil, nil)
	require.Error(t, err)
}

func TestLoadCatalogOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.toml")
	require.NoError(t, os.WriteFile(path, []byte("[types.zdravotnicke_pomocky]\ndaily_cap = 4\n"), 0o600))

	cfg := memoryConfig()
	cfg.AppointmentTypesFile = path
	catalog, err := LoadCatalog(cfg)
	require.NoError(t, err)
	typ, ok := catalog.Get(apptype.MedicalAids)
	require.True(t, ok)
	assert.Equal(t, 4, typ.DailyCap)

	cfg.AppointmentTypesFile = filepath.Join(t.TempDir(), "missing.toml")
	_, err = LoadCatalog(cfg)
	require.Error(t, err)
}

func TestNewHolidaysToggle(t *testing.T) {
	cfg := memoryConfig()
	// Friday 2025-08-29, SNP anniversary.
	day := time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC)

	on, err := NewHolidays(cfg).IsWorkingDay(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, on)

	cfg.HolidaysEnabled = false
	off, err := NewHolidays(cfg).IsWorkingDay(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, off)
}
