package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehacentrum/booking-engine/internal/calendar"
)

func withID(id string, e calendar.Event) calendar.Event {
	e.ID = id
	return e
}

func TestResolvePatientExactPhone(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Eva Malá", "+421900000001", tuesday(9, 0))),
		withID("b", booked("Vstupné vyšetrenie", "Ján Novák", "+421910123456", tuesday(9, 10))),
	}
	got, err := ResolvePatient(events, "", "0910 123 456")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestResolvePatientLastDigitsWinOverName(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Ján Novák", "+421900000001", tuesday(9, 0))),
		withID("b", booked("Vstupné vyšetrenie", "Eva Malá", "+421910123456", tuesday(9, 10))),
	}
	// Different prefix, same last six digits as Eva; the name points at Ján.
	got, err := ResolvePatient(events, "Ján Novák", "+421905123456")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestResolvePatientLastDigitsAmbiguous(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Ján Novák", "+421910123456", tuesday(9, 0))),
		withID("b", booked("Vstupné vyšetrenie", "Eva Malá", "+421920123456", tuesday(9, 10))),
	}
	_, err := ResolvePatient(events, "Ján Novák", "+421905123456")
	assert.ErrorIs(t, err, ErrAmbiguousMatch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePatientByName(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Eva Malá", "+421900000001", tuesday(9, 0))),
		withID("b", booked("Kontrolné vyšetrenie", "Ján Novák", "+421900000002", tuesday(9, 10))),
	}

	got, err := ResolvePatient(events, "jan novak", "+421999999999")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	got, err = ResolvePatient(events, "Novák", "")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestResolvePatientShortSingleNameIsNotSearched(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Ján Novák", "+421900000002", tuesday(9, 10))),
	}
	_, err := ResolvePatient(events, "Ján", "+421999999999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAmbiguousMatch)
}

func TestResolvePatientNameAmbiguous(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Ján Novák", "+421900000001", tuesday(9, 0))),
		withID("b", booked("Kontrolné vyšetrenie", "Ján Novák", "+421900000002", tuesday(9, 10))),
	}
	_, err := ResolvePatient(events, "Ján Novák", "")
	assert.ErrorIs(t, err, ErrAmbiguousMatch)
}

func TestResolvePatientIgnoresAllDayEvents(t *testing.T) {
	events := []calendar.Event{
		{ID: "v", AllDay: true, Summary: "DOVOLENKA Ján Novák", Description: "Telefón: +421910123456"},
	}
	_, err := ResolvePatient(events, "Ján Novák", "+421910123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePatientNoMatch(t *testing.T) {
	events := []calendar.Event{
		withID("a", booked("Vstupné vyšetrenie", "Eva Malá", "+421900000001", tuesday(9, 0))),
	}
	_, err := ResolvePatient(events, "Peter Horváth", "+421911222333")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAmbiguousMatch)
}
