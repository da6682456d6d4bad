package calendar

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used for local runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	events []Event
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ListEvents returns timed events starting in [from, to) and all-day events
// overlapping it, ordered by start then insertion.
func (m *MemoryStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for _, e := range m.events {
		if e.AllDay {
			if e.Start.Before(to) && e.End.After(from) {
				out = append(out, e)
			}
			continue
		}
		if !e.Start.Before(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateEvent stores a timed event.
func (m *MemoryStore) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	return m.add(Event{
		Start:       e.Start,
		End:         e.End,
		Summary:     e.Summary,
		Description: e.Description,
	}), nil
}

// DeleteEvent removes the event with id.
func (m *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}

// AddAllDay stores an all-day entry such as a staff vacation marker.
func (m *MemoryStore) AddAllDay(date time.Time, summary string) Event {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return m.add(Event{Start: start, End: start.AddDate(0, 0, 1), AllDay: true, Summary: summary})
}

// Seed stores events as given, assigning IDs to those without one.
func (m *MemoryStore) Seed(events ...Event) {
	for _, e := range events {
		m.add(e)
	}
}

// Len reports the number of stored events.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *MemoryStore) add(e Event) Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if e.ID == "" {
		e.ID = "evt-" + strconv.Itoa(m.seq)
	}
	m.events = append(m.events, e)
	return e
}
