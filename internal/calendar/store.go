// Package calendar adapts the clinic's shared calendar, the only durable
// record of bookings, to the scheduling engine.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned when deleting an event that no longer exists.
var ErrEventNotFound = errors.New("calendar: event not found")

// Event is a calendar entry. The engine reads only the times, summary and
// description.
type Event struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
}

// NewEvent is the payload for CreateEvent.
type NewEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	ColorID     string
}

// Store lists, appends and deletes events on the shared calendar.
type Store interface {
	// ListEvents returns events starting in [from, to), ordered by start time.
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, e NewEvent) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// DayBounds returns midnight of date and of the following day in loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = date.Location()
	}
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ListDay lists the events of one calendar day.
func ListDay(ctx context.Context, s Store, date time.Time, loc *time.Location) ([]Event, error) {
	from, to := DayBounds(date, loc)
	return s.ListEvents(ctx, from, to)
}
