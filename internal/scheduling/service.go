package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/internal/slotlock"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

var schedulingTracer = otel.Tracer("rehacentrum.internal.scheduling")

// Config tunes the scheduling service.
type Config struct {
	Location        *time.Location
	Rules           Rules
	VacationKeyword string
	// AlternativeDays is how many dates with free slots a rejection offers.
	AlternativeDays int
	// AlternativeScanDays bounds the dates inspected while collecting them.
	AlternativeScanDays int
	AlternativesPerDay  int
	// ClosestSearchDays is the default horizon of FindClosestSlot.
	ClosestSearchDays int
}

// DefaultConfig returns the clinic defaults in loc.
func DefaultConfig(loc *time.Location) Config {
	return Config{
		Location:            loc,
		Rules:               DefaultRules(),
		VacationKeyword:     DefaultVacationKeyword,
		AlternativeDays:     5,
		AlternativeScanDays: 30,
		AlternativesPerDay:  3,
		ClosestSearchDays:   7,
	}
}

// Service implements the booking operations on top of a calendar store.
type Service struct {
	cfg        Config
	catalog    *apptype.Catalog
	normalizer *apptype.Normalizer
	store      calendar.Store
	calc       *Calculator
	validator  *Validator
	holidays   holiday.Oracle
	clock      Clock
	locker     slotlock.Locker
	metrics    *metrics.SchedulingMetrics
	logger     *logging.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocker serialises writes to the same slot.
func WithLocker(l slotlock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a scheduling service.
func NewService(cfg Config, catalog *apptype.Catalog, store calendar.Store, holidays holiday.Oracle, opts ...Option) *Service {
	if store == nil {
		panic("scheduling: calendar store required")
	}
	if catalog == nil {
		catalog = apptype.DefaultCatalog()
	}
	if holidays == nil {
		holidays = holiday.NewCalendar()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	def := DefaultConfig(cfg.Location)
	if cfg.AlternativeDays <= 0 {
		cfg.AlternativeDays = def.AlternativeDays
	}
	if cfg.AlternativeScanDays <= 0 {
		cfg.AlternativeScanDays = def.AlternativeScanDays
	}
	if cfg.AlternativesPerDay <= 0 {
		cfg.AlternativesPerDay = def.AlternativesPerDay
	}
	if cfg.ClosestSearchDays <= 0 {
		cfg.ClosestSearchDays = def.ClosestSearchDays
	}
	if len(cfg.Rules.Workdays) == 0 {
		cfg.Rules.Workdays = def.Rules.Workdays
	}

	s := &Service{
		cfg:        cfg,
		catalog:    catalog,
		normalizer: apptype.NewNormalizer(catalog),
		store:      store,
		holidays:   holidays,
		clock:      SystemClock{},
		locker:     slotlock.Noop{},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calc = NewCalculator(catalog, store, holidays, cfg.Location)
	if cfg.VacationKeyword != "" {
		s.calc.vacationKeyword = cfg.VacationKeyword
	}
	s.validator = NewValidator(s.normalizer, s.calc, holidays, s.clock, cfg.Rules)
	return s
}

// Location is the clinic timezone.
func (s *Service) Location() *time.Location { return s.cfg.Location }

// Catalog exposes the appointment type catalog.
func (s *Service) Catalog() *apptype.Catalog { return s.catalog }

// ResolveType maps caller input to a catalog type.
func (s *Service) ResolveType(input string) (apptype.Type, error) {
	typ, err := s.normalizer.Resolve(input)
	if err != nil {
		return apptype.Type{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return typ, nil
}

// GetAvailableSlots lists the free slots of a type on date.
func (s *Service) GetAvailableSlots(ctx context.Context, date time.Time, typeInput string) (apptype.Type, []Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.available_slots")
	defer span.End()

	typ, err := s.ResolveType(typeInput)
	if err != nil {
		return apptype.Type{}, nil, err
	}
	span.SetAttributes(attribute.String("rehacentrum.type", typ.Key), attribute.String("rehacentrum.date", date.In(s.cfg.Location).Format("2006-01-02")))

	slots, err := s.calc.AvailableSlots(ctx, date, typ)
	if err != nil {
		recordSpanError(span, err)
		return typ, nil, err
	}
	s.metrics.ObserveSlots(typ.Key, len(slots))
	return typ, slots, nil
}

// ClosestSlot is the earliest bookable slot found by FindClosestSlot.
type ClosestSlot struct {
	Type apptype.Type
	Slot Slot
	// DaysFromStart counts the dates skipped before the slot's date.
	DaysFromStart int
}

// FindClosestSlot scans days dates from from (today when zero) for the
// earliest bookable slot that still respects the minimum booking lead.
func (s *Service) FindClosestSlot(ctx context.Context, typeInput string, from time.Time, days int) (ClosestSlot, bool, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.closest_slot")
	defer span.End()

	typ, err := s.ResolveType(typeInput)
	if err != nil {
		return ClosestSlot{}, false, err
	}
	if days <= 0 {
		days = s.cfg.ClosestSearchDays
	}
	now := s.clock.Now()
	if from.IsZero() || from.Before(now) {
		from = now
	}
	span.SetAttributes(attribute.String("rehacentrum.type", typ.Key), attribute.Int("rehacentrum.days", days))

	slot, skipped, ok, err := s.calc.SoonestSlot(ctx, typ, from, days, s.notBefore())
	if err != nil {
		recordSpanError(span, err)
		return ClosestSlot{}, false, err
	}
	return ClosestSlot{Type: typ, Slot: slot, DaysFromStart: skipped}, ok, nil
}

// AlternativeSlots lists free slots on the next dates from from.
func (s *Service) AlternativeSlots(ctx context.Context, typ apptype.Type, from time.Time) ([]DaySlots, error) {
	now := s.clock.Now()
	if from.Before(now) {
		from = now
	}
	return s.calc.Alternatives(ctx, typ, from, s.cfg.AlternativeDays, s.cfg.AlternativeScanDays, s.cfg.AlternativesPerDay, s.notBefore())
}

// Validate runs the booking checks without writing anything.
func (s *Service) Validate(ctx context.Context, req BookingRequest) (ValidationResult, error) {
	req.Patient = req.Patient.Normalized()
	return s.validator.Validate(ctx, req)
}

// Booking is a created appointment.
type Booking struct {
	Event       calendar.Event
	Type        apptype.Type
	Patient     patient.Patient
	OrderNumber int
}

// BookAppointment validates a request and creates the calendar event.
// Rejections are *ValidationError values carrying alternative slots.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (Booking, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()

	req.Patient = req.Patient.Normalized()
	res, err := s.validator.Validate(ctx, req)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("book", "", "error")
		return Booking{}, err
	}
	span.SetAttributes(attribute.String("rehacentrum.type", res.Type.Key))
	if !res.Valid {
		verr := s.rejection(ctx, res, req.Start)
		s.metrics.ObserveOperation("book", res.Type.Key, outcome(verr))
		s.logger.Info("booking rejected", "type", res.Type.Key, "phone", patient.MaskPhone(req.Patient.Phone), "reasons", res.Errors)
		return Booking{}, verr
	}

	booking, err := s.commit(ctx, res.Type, req.Patient, req.Start, nil)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("book", res.Type.Key, outcome(err))
		return Booking{}, err
	}
	s.metrics.ObserveOperation("book", res.Type.Key, "ok")
	s.logger.Info("appointment booked",
		"event_id", booking.Event.ID,
		"type", booking.Type.Key,
		"start", booking.Event.Start.Format(time.RFC3339),
		"order_number", booking.OrderNumber,
		"phone", patient.MaskPhone(booking.Patient.Phone),
	)
	return booking, nil
}

// Cancellation describes a removed appointment.
type Cancellation struct {
	Event calendar.Event
	// Type is the zero value when the summary names no catalog type.
	Type    apptype.Type
	Patient patient.Patient
}

// CancelAppointment finds the caller's appointment on date and deletes it.
func (s *Service) CancelAppointment(ctx context.Context, name, phone string, date time.Time) (Cancellation, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel")
	defer span.End()

	if strings.TrimSpace(name) == "" || strings.TrimSpace(phone) == "" {
		return Cancellation{}, fmt.Errorf("%w: name and phone are required", ErrInvalidInput)
	}

	ev, err := s.locate(ctx, name, phone, date)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("cancel", "", outcome(err))
		return Cancellation{}, err
	}
	if err := s.store.DeleteEvent(ctx, ev.ID); err != nil {
		recordSpanError(span, err)
		if errors.Is(err, calendar.ErrEventNotFound) {
			s.metrics.ObserveOperation("cancel", "", "not_found")
			return Cancellation{}, fmt.Errorf("%w: event %s already removed", ErrNotFound, ev.ID)
		}
		s.metrics.ObserveOperation("cancel", "", "error")
		return Cancellation{}, upstream("delete event", err)
	}

	typ, _ := s.catalog.TypeOfSummary(ev.Summary)
	s.metrics.ObserveOperation("cancel", typ.Key, "ok")
	s.logger.Info("appointment cancelled", "event_id", ev.ID, "type", typ.Key, "phone", patient.MaskPhone(phone))
	return Cancellation{Event: ev, Type: typ, Patient: s.patientOf(ev, name, phone)}, nil
}

// RescheduleRequest moves the caller's appointment on OldDate to NewStart.
type RescheduleRequest struct {
	Name     string
	Phone    string
	OldDate  time.Time
	NewStart time.Time
}

// Reschedule is the result of a successful move.
type Reschedule struct {
	Old calendar.Event
	New Booking
}

// RescheduleAppointment deletes the old event and creates a new one with the
// same type and patient data. The two writes are not atomic: when the create
// fails after the delete, the error is a *PartialFailureError.
func (s *Service) RescheduleAppointment(ctx context.Context, req RescheduleRequest) (Reschedule, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
		return Reschedule{}, fmt.Errorf("%w: name and phone are required", ErrInvalidInput)
	}

	old, err := s.locate(ctx, req.Name, req.Phone, req.OldDate)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("reschedule", "", outcome(err))
		return Reschedule{}, err
	}
	typ, ok := s.catalog.TypeOfSummary(old.Summary)
	if !ok {
		s.metrics.ObserveOperation("reschedule", "", "invalid")
		return Reschedule{}, fmt.Errorf("%w: cannot determine the type of appointment %q", ErrInvalidInput, old.Summary)
	}
	span.SetAttributes(attribute.String("rehacentrum.type", typ.Key))

	res, err := s.validator.ValidateSlot(ctx, typ, req.NewStart, old.ID)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("reschedule", typ.Key, "error")
		return Reschedule{}, err
	}
	if !res.Valid {
		verr := s.rejection(ctx, res, req.NewStart)
		s.metrics.ObserveOperation("reschedule", typ.Key, outcome(verr))
		return Reschedule{}, verr
	}

	p := s.patientOf(old, req.Name, req.Phone)
	booking, err := s.commit(ctx, typ, p, req.NewStart, &old)
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveOperation("reschedule", typ.Key, outcome(err))
		var partial *PartialFailureError
		if errors.As(err, &partial) {
			s.logger.Error("reschedule left patient without appointment",
				"deleted_event_id", partial.DeletedEventID,
				"old_start", partial.OldStart.Format(time.RFC3339),
				"new_start", req.NewStart.Format(time.RFC3339),
				"phone", patient.MaskPhone(p.Phone),
				"error", partial.Err,
			)
		}
		return Reschedule{}, err
	}
	s.metrics.ObserveOperation("reschedule", typ.Key, "ok")
	s.logger.Info("appointment rescheduled", "old_event_id", old.ID, "event_id", booking.Event.ID, "type", typ.Key)
	return Reschedule{Old: old, New: booking}, nil
}

// locate lists date and picks the caller's appointment.
func (s *Service) locate(ctx context.Context, name, phone string, date time.Time) (calendar.Event, error) {
	events, err := calendar.ListDay(ctx, s.store, date, s.cfg.Location)
	if err != nil {
		return calendar.Event{}, upstream("list events", err)
	}
	return ResolvePatient(events, name, phone)
}

// patientOf rebuilds patient data from an event, falling back to what the
// caller said.
func (s *Service) patientOf(ev calendar.Event, name, phone string) patient.Patient {
	d := calendar.ParseDescription(ev.Description)
	full := strings.TrimSpace(d.PatientName)
	if full == "" {
		if _, after, ok := strings.Cut(ev.Summary, " - "); ok {
			full = strings.TrimSpace(after)
		}
	}
	if full == "" {
		full = strings.TrimSpace(name)
	}
	first, last, _ := strings.Cut(full, " ")
	p := patient.Patient{
		Name:      first,
		Surname:   strings.TrimSpace(last),
		Phone:     d.Phone,
		Insurance: d.Insurance,
		Email:     d.Email,
	}
	if p.Phone == "" {
		p.Phone = phone
	}
	if p.Insurance == "N/A" {
		p.Insurance = ""
	}
	return p.Normalized()
}

// commit re-checks the slot against a fresh listing and writes the event.
// When replace is set it is deleted first.
func (s *Service) commit(ctx context.Context, typ apptype.Type, p patient.Patient, start time.Time, replace *calendar.Event) (Booking, error) {
	exclude := ""
	if replace != nil {
		exclude = replace.ID
	}
	var booking Booking
	ran := false
	write := func(ctx context.Context) error {
		ran = true
		d, err := s.calc.snapshot(ctx, start, exclude)
		if err != nil {
			return err
		}
		if msg := s.recheck(d, typ, start); msg != "" {
			return &ValidationError{Kind: ErrSchedulingConflict, Messages: []string{msg}}
		}
		if replace != nil {
			if err := s.store.DeleteEvent(ctx, replace.ID); err != nil {
				if errors.Is(err, calendar.ErrEventNotFound) {
					return fmt.Errorf("%w: event %s already removed", ErrNotFound, replace.ID)
				}
				return upstream("delete event", err)
			}
		}
		order := OrderNumber(s.catalog, typ, d.events, start)
		ev, err := s.store.CreateEvent(ctx, s.newEvent(typ, p, start, order))
		if err != nil {
			if replace != nil {
				return &PartialFailureError{DeletedEventID: replace.ID, OldStart: replace.Start, Err: err}
			}
			return upstream("create event", err)
		}
		booking = Booking{Event: ev, Type: typ, Patient: p, OrderNumber: order}
		return nil
	}

	err := s.locker.WithSlotLock(ctx, slotlock.Key(start.In(s.cfg.Location)), write)
	switch {
	case err == nil:
		return booking, nil
	case errors.Is(err, slotlock.ErrLockNotAcquired):
		return Booking{}, &ValidationError{
			Kind:     ErrSchedulingConflict,
			Messages: []string{"another booking for that date is in progress"},
		}
	case !ran:
		s.logger.Warn("slot lock unavailable, writing without it", "error", err)
		if err := write(ctx); err != nil {
			return Booking{}, err
		}
		return booking, nil
	default:
		return Booking{}, err
	}
}

// recheck repeats the cap and occupancy checks immediately before a write.
func (s *Service) recheck(d day, typ apptype.Type, start time.Time) string {
	if s.calc.isVacation(d) {
		return "the clinic is closed on that date"
	}
	if s.calc.typeCount(d, typ) >= typ.DailyCap {
		return fmt.Sprintf("daily limit of %d reached for %s", typ.DailyCap, typ.Name)
	}
	if s.calc.occupied(d)[start.In(s.cfg.Location).Format("15:04")] {
		return "the time slot has just been taken"
	}
	return ""
}

func (s *Service) newEvent(typ apptype.Type, p patient.Patient, start time.Time, order int) calendar.NewEvent {
	start = start.In(s.cfg.Location)
	return calendar.NewEvent{
		Summary: calendar.FormatSummary(typ.Name, p.FullName()),
		Description: calendar.FormatDescription(calendar.Details{
			OrderNumber:     order,
			TypeName:        typ.Name,
			PatientName:     p.FullName(),
			Phone:           p.Phone,
			Insurance:       p.Insurance,
			Email:           p.Email,
			DurationMinutes: typ.DurationMinutes,
			Price:           typ.Price,
			CreatedAt:       s.clock.Now().In(s.cfg.Location),
		}),
		Start:   start,
		End:     start.Add(time.Duration(typ.DurationMinutes) * time.Minute),
		ColorID: typ.ColorID,
	}
}

// rejection turns a failed validation into a *ValidationError with
// alternatives for the following days.
func (s *Service) rejection(ctx context.Context, res ValidationResult, start time.Time) error {
	verr := &ValidationError{Kind: res.Kind(), Messages: res.Errors, Suggestions: res.Suggestions}
	if !res.TypeKnown {
		return verr
	}
	alts, err := s.AlternativeSlots(ctx, res.Type, start)
	if err != nil {
		s.logger.Warn("alternative slot lookup failed", "type", res.Type.Key, "error", err)
		return verr
	}
	verr.Alternatives = alts
	return verr
}

func (s *Service) notBefore() time.Time {
	return s.clock.Now().Add(s.cfg.Rules.MinAdvance)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrSchedulingConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPartialFailure):
		return "partial_failure"
	default:
		return "error"
	}
}
