// Package holiday answers whether the clinic is open on a calendar date.
package holiday

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Oracle is the working-day collaborator consumed by the scheduling engine.
type Oracle interface {
	IsWorkingDay(ctx context.Context, date time.Time) (bool, error)
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// Holiday is a named public holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// DefaultWorkdays is Monday through Friday.
var DefaultWorkdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Calendar is the Slovak public holiday calendar with a configurable
// working week. Computed years are memoised.
type Calendar struct {
	workdays map[time.Weekday]bool
	enabled  bool

	mu    sync.Mutex
	years map[int]map[string]string
}

// Option customises a Calendar.
type Option func(*Calendar)

// WithWorkdays replaces the working week.
func WithWorkdays(days ...time.Weekday) Option {
	return func(c *Calendar) {
		c.workdays = make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			c.workdays[d] = true
		}
	}
}

// WithHolidaysDisabled makes IsHoliday always false; every workday is open.
func WithHolidaysDisabled() Option {
	return func(c *Calendar) { c.enabled = false }
}

// NewCalendar builds the Slovak calendar.
func NewCalendar(opts ...Option) *Calendar {
	c := &Calendar{enabled: true, years: make(map[int]map[string]string)}
	WithWorkdays(DefaultWorkdays...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsHoliday reports whether date is a Slovak public holiday.
func (c *Calendar) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	_, ok := c.lookup(date)
	return ok, nil
}

// IsWorkingDay reports whether date is a configured workday that is not a holiday.
func (c *Calendar) IsWorkingDay(ctx context.Context, date time.Time) (bool, error) {
	if !c.workdays[date.Weekday()] {
		return false, nil
	}
	holiday, err := c.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}
	return !holiday, nil
}

// Name returns the holiday name for date, if any.
func (c *Calendar) Name(date time.Time) (string, bool) {
	return c.lookup(date)
}

// Upcoming lists holidays within days after from, inclusive of from.
func (c *Calendar) Upcoming(from time.Time, days int) []Holiday {
	var out []Holiday
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i <= days; i++ {
		d := day.AddDate(0, 0, i)
		if name, ok := c.lookup(d); ok {
			out = append(out, Holiday{Date: d, Name: name})
		}
	}
	return out
}

// Year lists all holidays of a year ordered by date.
func (c *Calendar) Year(year int, loc *time.Location) []Holiday {
	if loc == nil {
		loc = time.UTC
	}
	set := c.year(year)
	out := make([]Holiday, 0, len(set))
	for key, name := range set {
		d, err := time.ParseInLocation(time.DateOnly, key, loc)
		if err != nil {
			continue
		}
		out = append(out, Holiday{Date: d, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (c *Calendar) lookup(date time.Time) (string, bool) {
	if !c.enabled {
		return "", false
	}
	name, ok := c.year(date.Year())[date.Format(time.DateOnly)]
	return name, ok
}

func (c *Calendar) year(year int) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.years[year]; ok {
		return set
	}
	set := slovakHolidays(year)
	c.years[year] = set
	return set
}

func slovakHolidays(year int) map[string]string {
	set := make(map[string]string, 16)
	add := func(month time.Month, day int, name string) {
		set[time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)] = name
	}
	add(time.January, 1, "Deň vzniku Slovenskej republiky")
	add(time.January, 6, "Zjavenie Pána")
	add(time.May, 1, "Sviatok práce")
	add(time.May, 8, "Deň víťazstva nad fašizmom")
	add(time.July, 5, "Sviatok svätého Cyrila a Metoda")
	add(time.August, 29, "Výročie SNP")
	if year < 2024 {
		add(time.September, 1, "Deň Ústavy Slovenskej republiky")
	}
	add(time.September, 15, "Sedembolestná Panna Mária")
	add(time.November, 1, "Sviatok Všetkých svätých")
	add(time.November, 17, "Deň boja za slobodu a demokraciu")
	add(time.December, 24, "Štedrý deň")
	add(time.December, 25, "Prvý sviatok vianočný")
	add(time.December, 26, "Druhý sviatok vianočný")

	easter := EasterSunday(year)
	set[easter.AddDate(0, 0, -2).Format(time.DateOnly)] = "Veľký piatok"
	set[easter.AddDate(0, 0, 1).Format(time.DateOnly)] = "Veľkonočný pondelok"
	return set
}

// EasterSunday computes Western Easter with the anonymous Gregorian algorithm.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
