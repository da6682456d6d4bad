package calendar

import (
	"context"
	"time"

	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
)

type instrumented struct {
	next    Store
	metrics *metrics.SchedulingMetrics
}

// Instrument records the latency and outcome of every call to s.
func Instrument(s Store, m *metrics.SchedulingMetrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, metrics: m}
}

func (i *instrumented) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	start := time.Now()
	events, err := i.next.ListEvents(ctx, from, to)
	i.metrics.ObserveCalendarCall("list", err != nil, time.Since(start).Seconds())
	return events, err
}

func (i *instrumented) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	start := time.Now()
	ev, err := i.next.CreateEvent(ctx, e)
	i.metrics.ObserveCalendarCall("create", err != nil, time.Since(start).Seconds())
	return ev, err
}

func (i *instrumented) DeleteEvent(ctx context.Context, id string) error {
	start := time.Now()
	err := i.next.DeleteEvent(ctx, id)
	i.metrics.ObserveCalendarCall("delete", err != nil, time.Since(start).Seconds())
	return err
}
