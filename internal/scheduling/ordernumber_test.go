package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
)

func TestOrderNumber(t *testing.T) {
	catalog := apptype.DefaultCatalog()
	events := []calendar.Event{
		booked("Športová prehliadka", "A B", "+421900000001", tuesday(7, 0)),
		booked("Konzultácia", "C D", "+421900000002", tuesday(7, 30)),
		booked("Vstupné vyšetrenie", "E F", "+421900000003", tuesday(9, 0)),
		booked("Kontrolné vyšetrenie", "G H", "+421900000004", tuesday(9, 30)),
		{Summary: "porada", Start: tuesday(9, 40), End: tuesday(10, 0)},
		booked("Konzultácia", "I J", "+421900000005", tuesday(15, 0)),
	}
	initial := mustType(t, apptype.InitialExam)

	tests := []struct {
		name  string
		typ   apptype.Type
		start string
		want  int
	}{
		{name: "first of day", typ: initial, start: "06:50", want: 1},
		{name: "after consultation", typ: initial, start: "08:00", want: 2},
		{name: "same start is not earlier", typ: initial, start: "09:00", want: 2},
		{name: "counts every numbered type", typ: initial, start: "10:00", want: 4},
		{name: "afternoon", typ: mustType(t, apptype.Consultation), start: "15:10", want: 5},
		{name: "sports never numbered", typ: mustType(t, apptype.SportsExam), start: "08:00", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := apptype.ParseClock(tt.start)
			if err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, tt.want, OrderNumber(catalog, tt.typ, events, tuesday(m/60, m%60)))
		})
	}
}
