package scheduling

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "02.01.2006", "2.1.2006"}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate reads a calendar date as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, value)
}

// ParseDateTime reads a timestamp. Values without an offset are clinic
// local time.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date/time %q, expected YYYY-MM-DDTHH:MM", ErrInvalidInput, value)
}
