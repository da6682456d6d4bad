package scheduling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/patient"
)

// Fixed offset keeps the tests independent of the host tz database.
var clinicTZ = time.FixedZone("CET", 3600)

// Monday 2025-03-03 08:00.
var testNow = time.Date(2025, 3, 3, 8, 0, 0, 0, clinicTZ)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, clinicTZ)
}

// tuesday is 2025-03-04.
func tuesday(hh, mm int) time.Time { return at(2025, time.March, 4, hh, mm) }

func newTestService(store calendar.Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(FixedClock(testNow))}, opts...)
	return NewService(DefaultConfig(clinicTZ), apptype.DefaultCatalog(), store, holiday.NewCalendar(), opts...)
}

func testPatient() patient.Patient {
	return patient.Patient{
		Name:      "Ján",
		Surname:   "Novák",
		Phone:     "0910 123 456",
		Insurance: "dôvera",
	}
}

// booked builds a stored booking event the way the service writes it.
func booked(typeName, fullName, phone string, start time.Time) calendar.Event {
	return calendar.Event{
		Start:   start,
		End:     start.Add(30 * time.Minute),
		Summary: calendar.FormatSummary(typeName, fullName),
		Description: calendar.FormatDescription(calendar.Details{
			TypeName:    typeName,
			PatientName: fullName,
			Phone:       phone,
			Insurance:   patient.CarrierDovera,
			CreatedAt:   testNow,
		}),
	}
}

// flakyStore wraps a MemoryStore and fails selected calls.
type flakyStore struct {
	*calendar.MemoryStore

	mu         sync.Mutex
	failList   bool
	failCreate bool
	failDelete bool
	creates    int
	deletes    int
}

var errCalendarDown = errors.New("calendar down")

func (f *flakyStore) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return nil, errCalendarDown
	}
	return f.MemoryStore.ListEvents(ctx, from, to)
}

func (f *flakyStore) CreateEvent(ctx context.Context, e calendar.NewEvent) (calendar.Event, error) {
	f.mu.Lock()
	f.creates++
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return calendar.Event{}, errCalendarDown
	}
	return f.MemoryStore.CreateEvent(ctx, e)
}

func (f *flakyStore) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes++
	fail := f.failDelete
	f.mu.Unlock()
	if fail {
		return errCalendarDown
	}
	return f.MemoryStore.DeleteEvent(ctx, id)
}
