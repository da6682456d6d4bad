package scheduling

import (
	"sort"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
)

// OrderNumber returns the patient-facing queue position for an appointment
// of typ starting at start: one plus the number of the day's order-numbered
// events that start strictly earlier. It is zero for types without
// numbering. Events sharing a start time keep retrieval order and receive
// the same position.
func OrderNumber(catalog *apptype.Catalog, typ apptype.Type, events []calendar.Event, start time.Time) int {
	if !typ.OrderNumbered {
		return 0
	}
	numbered := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.AllDay {
			continue
		}
		t, ok := catalog.TypeOfSummary(e.Summary)
		if !ok || !t.OrderNumbered {
			continue
		}
		numbered = append(numbered, e.Start)
	}
	sort.SliceStable(numbered, func(i, j int) bool { return numbered[i].Before(numbered[j]) })

	n := 1
	for _, s := range numbered {
		if !s.Before(start) {
			break
		}
		n++
	}
	return n
}
