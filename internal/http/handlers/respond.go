package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// params holds the loosely typed arguments a voice agent sends.
type params map[string]any

func (p params) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (p params) intOr(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// missing returns the keys without a value.
func (p params) missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if p.str(k) == "" {
			out = append(out, k)
		}
	}
	return out
}

var slovakDays = [...]string{"nedeľa", "pondelok", "utorok", "streda", "štvrtok", "piatok", "sobota"}

func dayName(t time.Time) string { return slovakDays[t.Weekday()] }

func slotView(slots []scheduling.Slot, limit int) []map[string]string {
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]map[string]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]string{
			"time":     s.Time,
			"datetime": s.Start.Format(time.RFC3339),
		})
	}
	return out
}

func alternativesView(days []scheduling.DaySlots) []map[string]any {
	out := make([]map[string]any, 0, len(days))
	for _, d := range days {
		out = append(out, map[string]any{
			"date":            d.Date.Format("2006-01-02"),
			"day_name":        dayName(d.Date),
			"available_slots": slotView(d.Slots, 0),
		})
	}
	return out
}

func typeView(t apptype.Type) map[string]any {
	return map[string]any{
		"key":               t.Key,
		"name":              t.Name,
		"price":             t.PriceText(),
		"insurance_covered": t.InsuranceCovered,
		"duration_minutes":  t.DurationMinutes,
		"daily_cap":         t.DailyCap,
		"windows":           t.Windows,
		"requirements":      t.Requirements,
	}
}

// orderNumber hides the zero position of types without numbering.
func orderNumber(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}

func isInvalid(err error) bool { return errors.Is(err, scheduling.ErrInvalidInput) }
