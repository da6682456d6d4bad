package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/patient"
)

func request(typ string, start time.Time) BookingRequest {
	return BookingRequest{Patient: testPatient(), Type: typ, Start: start}
}

func TestValidateAcceptsFreeSlot(t *testing.T) {
	s := newTestService(calendar.NewMemoryStore())
	res, err := s.Validate(context.Background(), request("vstupne", tuesday(9, 0)))
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)
	assert.Equal(t, apptype.InitialExam, res.Type.Key)
}

func TestValidateUnknownTypeStopsPipeline(t *testing.T) {
	s := newTestService(calendar.NewMemoryStore())
	res, err := s.Validate(context.Background(), BookingRequest{
		Patient: patient.Patient{Name: "Ján"},
		Type:    "masáž",
		Start:   at(2025, time.March, 8, 3, 0),
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.TypeKnown)
	assert.ErrorIs(t, res.Kind(), ErrInvalidInput)
	// Patient errors plus the type error; no date checks ran.
	assert.Contains(t, res.Errors, "surname is required")
	assert.Contains(t, res.Errors[len(res.Errors)-1], `unknown appointment type "masáž"`)
	assert.NotContains(t, res.Errors, "08.03.2025 is not a working day")
}

func TestValidateAccumulatesFailures(t *testing.T) {
	s := newTestService(calendar.NewMemoryStore())
	p := testPatient()
	p.Phone = "12345"
	p.Surname = "N"
	res, err := s.Validate(context.Background(), BookingRequest{Patient: p, Type: "vstupne_vysetrenie", Start: at(2025, time.March, 8, 12, 5)})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{
		"phone number must be in format +421XXXXXXXXX",
		"surname must be at least 2 characters long",
		"08.03.2025 is not a working day",
		"12:05 is outside the booking hours for Vstupné vyšetrenie",
	}, res.Errors)
	assert.ErrorIs(t, res.Kind(), ErrInvalidInput)
}

func TestValidateDateRules(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		now   time.Time
		setup func(*calendar.MemoryStore)
		typ   string
		start time.Time
		want  string
	}{
		{name: "past", typ: apptype.Consultation, start: at(2025, time.March, 3, 7, 30), want: "appointment time is in the past"},
		{name: "inside lead time", typ: apptype.Consultation, start: at(2025, time.March, 3, 8, 30), want: "appointments must be booked at least 1 hour in advance"},
		{name: "too far ahead", typ: apptype.InitialExam, start: at(2025, time.April, 15, 9, 0), want: "appointments can be booked at most 30 days in advance"},
		{name: "weekend", typ: apptype.InitialExam, start: at(2025, time.March, 9, 9, 0), want: "09.03.2025 is not a working day"},
		{
			name: "public holiday", now: at(2025, time.April, 28, 8, 0),
			typ: apptype.InitialExam, start: at(2025, time.May, 1, 9, 0), want: "01.05.2025 is a public holiday",
		},
		{
			name:  "vacation",
			setup: func(m *calendar.MemoryStore) { m.AddAllDay(tuesday(0, 0), "dovolenka") },
			typ:   apptype.InitialExam, start: tuesday(9, 0), want: "the clinic is closed on 04.03.2025",
		},
		{name: "outside window", typ: apptype.InitialExam, start: tuesday(12, 0), want: "12:00 is outside the booking hours for Vstupné vyšetrenie"},
		{name: "window end is exclusive", typ: apptype.InitialExam, start: tuesday(11, 30), want: "11:30 is outside the booking hours for Vstupné vyšetrenie"},
		{name: "off grid", typ: apptype.InitialExam, start: tuesday(9, 5), want: "time must align to 10-minute intervals"},
		{name: "sports tolerance slot is off grid", typ: apptype.SportsExam, start: tuesday(7, 10), want: "time must align to 20-minute intervals"},
		{name: "seconds", typ: apptype.InitialExam, start: tuesday(9, 0).Add(30 * time.Second), want: "time must align to 10-minute intervals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := calendar.NewMemoryStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			now := testNow
			if !tt.now.IsZero() {
				now = tt.now
			}
			s := newTestService(store, WithClock(FixedClock(now)))
			res, err := s.Validate(ctx, request(tt.typ, tt.start))
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Errors, tt.want)
			assert.ErrorIs(t, res.Kind(), ErrInvalidInput)
		})
	}
}

func TestValidateDailyCapIsConflict(t *testing.T) {
	store := calendar.NewMemoryStore()
	store.Seed(booked("Zdravotnícke pomôcky", "Eva Malá", "+421900000001", tuesday(9, 0)))
	s := newTestService(store)

	res, err := s.Validate(context.Background(), request("pomocky", tuesday(10, 0)))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"daily limit of 1 reached for Zdravotnícke pomôcky on 04.03.2025"}, res.Errors)
	assert.ErrorIs(t, res.Kind(), ErrSchedulingConflict)
	assert.Empty(t, res.Suggestions)
}

func TestValidateTakenSlotSuggestsFreeTimes(t *testing.T) {
	store := calendar.NewMemoryStore()
	store.Seed(booked("Konzultácia", "Eva Malá", "+421900000001", tuesday(9, 0)))
	s := newTestService(store)

	res, err := s.Validate(context.Background(), request("vstupne", tuesday(9, 0)))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"time slot 09:00 on 04.03.2025 is not available"}, res.Errors)
	assert.ErrorIs(t, res.Kind(), ErrSchedulingConflict)
	assert.Equal(t, []string{"09:10", "09:20", "09:30", "09:40", "09:50"}, slotTimes(res.Suggestions))
}

func TestValidateSlotExcludesEvent(t *testing.T) {
	store := calendar.NewMemoryStore()
	store.Seed(withID("old", booked("Zdravotnícke pomôcky", "Eva Malá", "+421900000001", tuesday(9, 0))))
	s := newTestService(store)
	aids := mustType(t, apptype.MedicalAids)

	res, err := s.validator.ValidateSlot(context.Background(), aids, tuesday(9, 0), "old")
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	res, err = s.validator.ValidateSlot(context.Background(), aids, tuesday(9, 0), "")
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "30 days", humanDuration(720*time.Hour))
	assert.Equal(t, "45 minutes", humanDuration(45*time.Minute))
}
