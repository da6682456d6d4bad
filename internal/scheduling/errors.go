package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. Callers branch on these with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrNotFound           = errors.New("appointment not found")
	// ErrAmbiguousMatch wraps ErrNotFound so callers cannot tell which
	// records exist.
	ErrAmbiguousMatch = fmt.Errorf("%w: ambiguous match", ErrNotFound)
	ErrUpstream       = errors.New("upstream unavailable")
	ErrPartialFailure = errors.New("partial failure")
)

// DaySlots groups alternative slots offered for one date.
type DaySlots struct {
	Date  time.Time `json:"date"`
	Slots []Slot    `json:"slots"`
}

// ValidationError carries every failed check of a booking attempt.
type ValidationError struct {
	Kind     error
	Messages []string
	// Suggestions are free slots on the requested date.
	Suggestions []Slot
	// Alternatives are free slots on the following working days.
	Alternatives []DaySlots
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// PartialFailureError reports a reschedule that removed the old event but
// could not create the new one. The patient has no appointment until staff
// intervene; it is never retried automatically.
type PartialFailureError struct {
	DeletedEventID string
	OldStart       time.Time
	Err            error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("reschedule removed event %s (%s) but creating the new one failed: %v",
		e.DeletedEventID, e.OldStart.Format("2006-01-02 15:04"), e.Err)
}

func (e *PartialFailureError) Unwrap() []error { return []error{ErrPartialFailure, e.Err} }

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
