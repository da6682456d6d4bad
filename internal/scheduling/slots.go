package scheduling

import (
	"sort"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
)

// DefaultToleranceStep adds a slot at every 10-minute boundary inside a
// window, so callers asking for an off-interval time still find it.
const DefaultToleranceStep = 10

// Slot is a candidate start time. It is recomputed on every query.
type Slot struct {
	Time  string    `json:"time"`
	Start time.Time `json:"datetime"`
}

// GenerateSlots enumerates the start times of typ on date, ascending,
// start-inclusive and end-exclusive per window. Each window contributes its
// interval grid plus every toleranceStep boundary; duplicates collapse.
// A non-positive toleranceStep disables the extra boundaries.
func GenerateSlots(typ apptype.Type, date time.Time, toleranceStep int) []Slot {
	minutes := make(map[int]struct{})
	for _, w := range typ.Windows {
		start, end, err := w.Bounds()
		if err != nil || w.Interval <= 0 {
			continue
		}
		for m := start; m < end; m += w.Interval {
			minutes[m] = struct{}{}
		}
		if toleranceStep > 0 {
			first := (start + toleranceStep - 1) / toleranceStep * toleranceStep
			for m := first; m < end; m += toleranceStep {
				minutes[m] = struct{}{}
			}
		}
	}

	ordered := make([]int, 0, len(minutes))
	for m := range minutes {
		ordered = append(ordered, m)
	}
	sort.Ints(ordered)

	y, mo, d := date.Date()
	loc := date.Location()
	out := make([]Slot, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, Slot{
			Time:  apptype.FormatClock(m),
			Start: time.Date(y, mo, d, m/60, m%60, 0, 0, loc),
		})
	}
	return out
}

// alignment finds the window containing t's minute of day and reports
// whether t sits on that window's interval grid. Tolerance boundaries are
// listed but not aligned.
func alignment(typ apptype.Type, t time.Time) (w apptype.Window, inWindow, aligned bool) {
	m := t.Hour()*60 + t.Minute()
	w, inWindow = typ.WindowAt(m)
	if !inWindow || t.Second() != 0 || t.Nanosecond() != 0 {
		return w, inWindow, false
	}
	start, _, err := w.Bounds()
	if err != nil || w.Interval <= 0 {
		return w, true, false
	}
	return w, true, (m-start)%w.Interval == 0
}

// Bookable keeps the slots of typ that a booking would accept, dropping
// tolerance boundaries that fall between interval steps.
func Bookable(typ apptype.Type, slots []Slot) []Slot {
	out := slots[:0:0]
	for _, s := range slots {
		if _, _, ok := alignment(typ, s.Start); ok {
			out = append(out, s)
		}
	}
	return out
}
