package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/patient"
)

// Rules are the clinic's booking-time constraints.
type Rules struct {
	MinAdvance time.Duration
	MaxAdvance time.Duration
	Workdays   []time.Weekday
}

// DefaultRules allow bookings from one hour to thirty days ahead, Monday to Friday.
func DefaultRules() Rules {
	return Rules{
		MinAdvance: time.Hour,
		MaxAdvance: 30 * 24 * time.Hour,
		Workdays:   append([]time.Weekday(nil), holiday.DefaultWorkdays...),
	}
}

// BookingRequest is one attempt to book.
type BookingRequest struct {
	Patient patient.Patient
	Type    string
	Start   time.Time
}

// ValidationResult is the outcome of the validation pipeline. Errors holds
// every failed check in pipeline order.
type ValidationResult struct {
	Valid       bool
	Type        apptype.Type
	TypeKnown   bool
	Errors      []string
	Suggestions []Slot

	invalid bool
}

// Kind is ErrInvalidInput when any input was malformed or illegal, and
// ErrSchedulingConflict when only capacity or availability failed.
func (r ValidationResult) Kind() error {
	if r.invalid || !r.TypeKnown {
		return ErrInvalidInput
	}
	return ErrSchedulingConflict
}

func (r *ValidationResult) reject(msg string) {
	r.invalid = true
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) conflict(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Validator runs the booking checks: patient data, type, date and time
// legality, daily cap and live slot availability.
type Validator struct {
	normalizer      *apptype.Normalizer
	calc            *Calculator
	holidays        holiday.Oracle
	clock           Clock
	rules           Rules
	workdays        map[time.Weekday]bool
	suggestionLimit int
}

// NewValidator wires a validator.
func NewValidator(normalizer *apptype.Normalizer, calc *Calculator, holidays holiday.Oracle, clock Clock, rules Rules) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	workdays := make(map[time.Weekday]bool, len(rules.Workdays))
	for _, d := range rules.Workdays {
		workdays[d] = true
	}
	return &Validator{
		normalizer:      normalizer,
		calc:            calc,
		holidays:        holidays,
		clock:           clock,
		rules:           rules,
		workdays:        workdays,
		suggestionLimit: 5,
	}
}

// Validate checks a booking request. Failures accumulate, except an unknown
// type which ends the pipeline. The error return is reserved for upstream
// failures.
func (v *Validator) Validate(ctx context.Context, req BookingRequest) (ValidationResult, error) {
	var res ValidationResult
	for _, msg := range req.Patient.Validate() {
		res.reject(msg)
	}

	typ, err := v.normalizer.Resolve(req.Type)
	if err != nil {
		var unknown *apptype.UnknownTypeError
		if !errors.As(err, &unknown) {
			return res, err
		}
		res.reject(unknown.Error())
		return res, nil
	}
	res.Type, res.TypeKnown = typ, true

	if err := v.checkSlot(ctx, &res, typ, req.Start, ""); err != nil {
		return res, err
	}
	res.Valid = len(res.Errors) == 0
	return res, nil
}

// ValidateSlot runs the date, cap and availability checks for an already
// resolved type, ignoring the event with ID exclude.
func (v *Validator) ValidateSlot(ctx context.Context, typ apptype.Type, start time.Time, exclude string) (ValidationResult, error) {
	res := ValidationResult{Type: typ, TypeKnown: true}
	if err := v.checkSlot(ctx, &res, typ, start, exclude); err != nil {
		return res, err
	}
	res.Valid = len(res.Errors) == 0
	return res, nil
}

func (v *Validator) checkSlot(ctx context.Context, res *ValidationResult, typ apptype.Type, start time.Time, exclude string) error {
	loc := v.calc.loc
	local := start.In(loc)
	now := v.clock.Now()
	dateText := local.Format("02.01.2006")

	switch {
	case local.Before(now):
		res.reject("appointment time is in the past")
	case local.Before(now.Add(v.rules.MinAdvance)):
		res.reject(fmt.Sprintf("appointments must be booked at least %s in advance", humanDuration(v.rules.MinAdvance)))
	}
	if v.rules.MaxAdvance > 0 && local.After(now.Add(v.rules.MaxAdvance)) {
		res.reject(fmt.Sprintf("appointments can be booked at most %s in advance", humanDuration(v.rules.MaxAdvance)))
	}

	dayOpen := true
	if !v.workdays[local.Weekday()] {
		dayOpen = false
		res.reject(fmt.Sprintf("%s is not a working day", dateText))
	}
	isHoliday, err := v.holidays.IsHoliday(ctx, local)
	if err != nil {
		return upstream("holiday lookup", err)
	}
	if isHoliday {
		dayOpen = false
		res.reject(fmt.Sprintf("%s is a public holiday", dateText))
	}

	d, err := v.calc.snapshot(ctx, local, exclude)
	if err != nil {
		return err
	}
	if v.calc.isVacation(d) {
		dayOpen = false
		res.reject(fmt.Sprintf("the clinic is closed on %s", dateText))
	}

	slotOK := true
	w, inWindow, aligned := alignment(typ, local)
	switch {
	case !inWindow:
		slotOK = false
		res.reject(fmt.Sprintf("%s is outside the booking hours for %s", local.Format("15:04"), typ.Name))
	case !aligned:
		slotOK = false
		res.reject(fmt.Sprintf("time must align to %d-minute intervals", w.Interval))
	}

	capReached := v.calc.typeCount(d, typ) >= typ.DailyCap
	if capReached {
		res.conflict(fmt.Sprintf("daily limit of %d reached for %s on %s", typ.DailyCap, typ.Name, dateText))
	}

	// Live availability adds nothing when the day, the time or the cap has
	// already failed.
	if dayOpen && slotOK && !capReached {
		free := v.calc.free(d, typ)
		want := local.Format("15:04")
		taken := true
		for _, s := range free {
			if s.Time == want {
				taken = false
				break
			}
		}
		if taken {
			res.conflict(fmt.Sprintf("time slot %s on %s is not available", want, dateText))
			res.Suggestions = firstN(Bookable(typ, notBeforeFilter(free, now.Add(v.rules.MinAdvance))), v.suggestionLimit)
		}
	}
	return nil
}

func firstN(slots []Slot, n int) []Slot {
	if len(slots) > n {
		return slots[:n]
	}
	return slots
}

func humanDuration(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0 && d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d%time.Hour == 0 && d >= time.Hour:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
