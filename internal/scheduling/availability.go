package scheduling

import (
	"context"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/textfold"
)

// DefaultVacationKeyword marks an event that closes the whole day.
const DefaultVacationKeyword = "DOVOLENKA"

// Calculator derives bookable slots from the calendar. It holds no state
// between calls: every answer is computed from a fresh listing.
type Calculator struct {
	catalog         *apptype.Catalog
	store           calendar.Store
	holidays        holiday.Oracle
	loc             *time.Location
	vacationKeyword string
	toleranceStep   int
}

// NewCalculator wires a calculator. loc is the clinic timezone.
func NewCalculator(catalog *apptype.Catalog, store calendar.Store, holidays holiday.Oracle, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		catalog:         catalog,
		store:           store,
		holidays:        holidays,
		loc:             loc,
		vacationKeyword: DefaultVacationKeyword,
		toleranceStep:   DefaultToleranceStep,
	}
}

// day is one listing of a calendar date.
type day struct {
	date   time.Time
	events []calendar.Event
}

// snapshot lists date's events, dropping the event with ID exclude.
func (c *Calculator) snapshot(ctx context.Context, date time.Time, exclude string) (day, error) {
	from, _ := calendar.DayBounds(date, c.loc)
	events, err := calendar.ListDay(ctx, c.store, from, c.loc)
	if err != nil {
		return day{}, upstream("list events", err)
	}
	if exclude != "" {
		kept := events[:0:0]
		for _, e := range events {
			if e.ID != exclude {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	return day{date: from, events: events}, nil
}

func (c *Calculator) isVacation(d day) bool {
	for _, e := range d.events {
		if textfold.Contains(e.Summary, c.vacationKeyword) {
			return true
		}
	}
	return false
}

// typeCount counts the date's events whose summary names typ.
func (c *Calculator) typeCount(d day, typ apptype.Type) int {
	n := 0
	for _, e := range d.events {
		if t, ok := c.catalog.TypeOfSummary(e.Summary); ok && t.Key == typ.Key {
			n++
		}
	}
	return n
}

// occupied collects "HH:MM" start times of every timed event on the date.
func (c *Calculator) occupied(d day) map[string]bool {
	taken := make(map[string]bool, len(d.events))
	for _, e := range d.events {
		if e.AllDay {
			continue
		}
		taken[e.Start.In(c.loc).Format("15:04")] = true
	}
	return taken
}

func (c *Calculator) free(d day, typ apptype.Type) []Slot {
	taken := c.occupied(d)
	var out []Slot
	for _, s := range GenerateSlots(typ, d.date, c.toleranceStep) {
		if !taken[s.Time] {
			out = append(out, s)
		}
	}
	return out
}

func (c *Calculator) isWorkingDay(ctx context.Context, date time.Time) (bool, error) {
	ok, err := c.holidays.IsWorkingDay(ctx, date)
	if err != nil {
		return false, upstream("holiday lookup", err)
	}
	return ok, nil
}

// availableIn applies the closed-day and daily-cap rules to a listing.
func (c *Calculator) availableIn(d day, typ apptype.Type) []Slot {
	if c.isVacation(d) || c.typeCount(d, typ) >= typ.DailyCap {
		return nil
	}
	return c.free(d, typ)
}

// AvailableSlots returns the free slots of typ on date: empty when the date
// is not a working day, is marked as vacation, or the type's cap is reached.
func (c *Calculator) AvailableSlots(ctx context.Context, date time.Time, typ apptype.Type) ([]Slot, error) {
	working, err := c.isWorkingDay(ctx, date.In(c.loc))
	if err != nil || !working {
		return nil, err
	}
	d, err := c.snapshot(ctx, date, "")
	if err != nil {
		return nil, err
	}
	return c.availableIn(d, typ), nil
}

// SoonestSlot scans up to maxDays dates starting at from and returns the
// earliest free bookable slot at or after notBefore, with the number of days
// skipped.
func (c *Calculator) SoonestSlot(ctx context.Context, typ apptype.Type, from time.Time, maxDays int, notBefore time.Time) (Slot, int, bool, error) {
	start, _ := calendar.DayBounds(from, c.loc)
	for i := 0; i < maxDays; i++ {
		date := start.AddDate(0, 0, i)
		slots, err := c.AvailableSlots(ctx, date, typ)
		if err != nil {
			return Slot{}, 0, false, err
		}
		if slots = Bookable(typ, notBeforeFilter(slots, notBefore)); len(slots) > 0 {
			return slots[0], i, true, nil
		}
	}
	return Slot{}, 0, false, nil
}

// Alternatives collects up to days dates with free slots, scanning at most
// maxScan dates from from, keeping the first perDay bookable slots of each.
func (c *Calculator) Alternatives(ctx context.Context, typ apptype.Type, from time.Time, days, maxScan, perDay int, notBefore time.Time) ([]DaySlots, error) {
	start, _ := calendar.DayBounds(from, c.loc)
	var out []DaySlots
	for i := 0; i < maxScan && len(out) < days; i++ {
		date := start.AddDate(0, 0, i)
		slots, err := c.AvailableSlots(ctx, date, typ)
		if err != nil {
			return nil, err
		}
		slots = Bookable(typ, notBeforeFilter(slots, notBefore))
		if len(slots) == 0 {
			continue
		}
		if len(slots) > perDay {
			slots = slots[:perDay]
		}
		out = append(out, DaySlots{Date: date, Slots: slots})
	}
	return out, nil
}

func notBeforeFilter(slots []Slot, notBefore time.Time) []Slot {
	if notBefore.IsZero() {
		return slots
	}
	out := slots[:0:0]
	for _, s := range slots {
		if !s.Start.Before(notBefore) {
			out = append(out, s)
		}
	}
	return out
}
