// Package apptype holds the clinic's appointment type catalog and the
// normalizer that maps spoken or typed type names onto canonical keys.
package apptype

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rehacentrum/booking-engine/internal/textfold"
)

// Canonical type keys.
const (
	SportsExam   = "sportova_prehliadka"
	InitialExam  = "vstupne_vysetrenie"
	FollowUpExam = "kontrolne_vysetrenie"
	MedicalAids  = "zdravotnicke_pomocky"
	Consultation = "konzultacia"
)

// Window is one bookable block of a day, walked in Interval-minute steps.
// Start is inclusive, End exclusive.
type Window struct {
	Start    string `json:"start" toml:"start"`
	End      string `json:"end" toml:"end"`
	Interval int    `json:"interval" toml:"interval"`
}

// Bounds returns the window edges as minutes since midnight.
func (w Window) Bounds() (start, end int, err error) {
	if start, err = ParseClock(w.Start); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(w.End); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Contains reports whether minute-of-day m falls inside the window.
func (w Window) Contains(m int) bool {
	start, end, err := w.Bounds()
	if err != nil {
		return false
	}
	return m >= start && m < end
}

// Type is the static configuration of one appointment type.
type Type struct {
	Key              string   `json:"key"`
	Name             string   `json:"name"`
	Windows          []Window `json:"windows"`
	DailyCap         int      `json:"daily_cap"`
	DurationMinutes  int      `json:"duration_minutes"`
	Price            int      `json:"price"`
	InsuranceCovered bool     `json:"insurance_covered"`
	OrderNumbered    bool     `json:"order_numbered"`
	ColorID          string   `json:"color_id,omitempty"`
	Requirements     []string `json:"requirements"`
}

// PriceText renders the price the way patients hear it.
func (t Type) PriceText() string {
	return fmt.Sprintf("%d€", t.Price)
}

// WindowAt returns the window containing minute-of-day m.
func (t Type) WindowAt(m int) (Window, bool) {
	for _, w := range t.Windows {
		if w.Contains(m) {
			return w, true
		}
	}
	return Window{}, false
}

func (t Type) validate() error {
	if strings.TrimSpace(t.Key) == "" {
		return errors.New("apptype: key required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("apptype: %s: name required", t.Key)
	}
	if len(t.Windows) == 0 {
		return fmt.Errorf("apptype: %s: at least one window required", t.Key)
	}
	if t.DailyCap <= 0 {
		return fmt.Errorf("apptype: %s: daily cap must be positive", t.Key)
	}
	type span struct{ start, end int }
	spans := make([]span, 0, len(t.Windows))
	for _, w := range t.Windows {
		start, end, err := w.Bounds()
		if err != nil {
			return fmt.Errorf("apptype: %s: %w", t.Key, err)
		}
		if end <= start {
			return fmt.Errorf("apptype: %s: window %s-%s is empty", t.Key, w.Start, w.End)
		}
		if w.Interval <= 0 {
			return fmt.Errorf("apptype: %s: window %s-%s needs a positive interval", t.Key, w.Start, w.End)
		}
		spans = append(spans, span{start, end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return fmt.Errorf("apptype: %s: windows overlap", t.Key)
		}
	}
	return nil
}

// Catalog is the fixed set of appointment types offered by the clinic.
type Catalog struct {
	types map[string]Type
	order []string
}

// NewCatalog validates types and indexes them by key, keeping the given order.
func NewCatalog(types ...Type) (*Catalog, error) {
	c := &Catalog{types: make(map[string]Type, len(types))}
	for _, t := range types {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.types[t.Key]; dup {
			return nil, fmt.Errorf("apptype: duplicate key %s", t.Key)
		}
		c.types[t.Key] = t
		c.order = append(c.order, t.Key)
	}
	return c, nil
}

// Get returns the type for a canonical key.
func (c *Catalog) Get(key string) (Type, bool) {
	t, ok := c.types[key]
	return t, ok
}

// Keys lists canonical keys in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All lists types in catalog order.
func (c *Catalog) All() []Type {
	out := make([]Type, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.types[k])
	}
	return out
}

// TypeOfSummary recovers the appointment type from an event summary of the
// form "{display name} - {patient}". The longest matching display name wins.
func (c *Catalog) TypeOfSummary(summary string) (Type, bool) {
	folded := textfold.String(summary)
	var best Type
	found := false
	for _, k := range c.order {
		t := c.types[k]
		name := textfold.String(t.Name)
		if name == "" || !strings.Contains(folded, name) {
			continue
		}
		if !found || len(name) > len(textfold.String(best.Name)) {
			best, found = t, true
		}
	}
	return best, found
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("apptype: invalid clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("apptype: invalid clock %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("apptype: invalid clock %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
