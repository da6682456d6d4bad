package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/holiday"
	"github.com/rehacentrum/booking-engine/internal/messaging"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
	"github.com/rehacentrum/booking-engine/internal/webhooklog"
)

var clinicTZ = time.FixedZone("CET", 3600)

// Monday 2025-03-03 08:00.
var testNow = time.Date(2025, 3, 3, 8, 0, 0, 0, clinicTZ)

type recordingSender struct {
	mu   sync.Mutex
	sent []messaging.SMS
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg messaging.SMS) (messaging.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return messaging.Receipt{}, r.err
	}
	r.sent = append(r.sent, msg)
	return messaging.Receipt{SID: "SM1", Status: "queued"}, nil
}

type downStore struct{}

func (downStore) ListEvents(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return nil, errors.New("calendar api: 503")
}

func (downStore) CreateEvent(context.Context, calendar.NewEvent) (calendar.Event, error) {
	return calendar.Event{}, errors.New("calendar api: 503")
}

func (downStore) DeleteEvent(context.Context, string) error { return errors.New("calendar api: 503") }

type fixture struct {
	store   calendar.Store
	sender  *recordingSender
	calls   *webhooklog.Memory
	handler *WebhookHandler
}

func newFixture(t *testing.T, store calendar.Store, sender *recordingSender) *fixture {
	t.Helper()
	if store == nil {
		store = calendar.NewMemoryStore()
	}
	engine := scheduling.NewService(scheduling.DefaultConfig(clinicTZ), apptype.DefaultCatalog(), store,
		holiday.NewCalendar(), scheduling.WithClock(scheduling.FixedClock(testNow)))

	var s messaging.Sender
	if sender != nil {
		s = sender
	}
	calls := webhooklog.NewMemory(10)
	return &fixture{
		store:  store,
		sender: sender,
		calls:  calls,
		handler: NewWebhookHandler(WebhookConfig{
			Engine:   engine,
			Notifier: messaging.NewNotifier(s, nil, nil),
			Calls:    calls,
		}),
	}
}

func (f *fixture) call(t *testing.T, action string, parameters map[string]any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"action": action, "parameters": parameters})
	require.NoError(t, err)
	return f.post(t, payload)
}

func (f *fixture) post(t *testing.T, payload []byte) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/webhook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func bookParams(dateTime string) map[string]any {
	return map[string]any{
		"appointment_type": "vstupne",
		"date_time":        dateTime,
		"patient_name":     "Ján",
		"patient_surname":  "Novák",
		"phone":            "0910 123 456",
		"insurance":        "dovera",
	}
}

func TestWebhook_RejectsMissingAction(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, body := f.post(t, []byte(`{"parameters":{}}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing action parameter", body["error"])
	assert.Len(t, body["supported_actions"], len(SupportedActions))

	code, _ = f.post(t, []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWebhook_UnknownAction(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, body := f.call(t, "delete_everything", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unsupported action: delete_everything", body["error"])
	assert.Len(t, body["supported_actions"], 6)
}

func TestWebhook_GetAvailableSlots(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, body := f.call(t, ActionGetAvailableSlots, map[string]any{"date": "2025-03-04", "appointment_type": "vstupne"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Vstupné vyšetrenie", body["appointment_type"])
	assert.EqualValues(t, 27, body["total_slots"])
	assert.Len(t, body["slots"], maxListedSlots)
	assert.Equal(t, "0€", body["price"])
	assert.Equal(t, true, body["insurance_covered"])

	first := body["slots"].([]any)[0].(map[string]any)
	assert.Equal(t, "09:00", first["time"])
	assert.Equal(t, "2025-03-04T09:00:00+01:00", first["datetime"])
}

func TestWebhook_GetAvailableSlotsValidation(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, body := f.call(t, ActionGetAvailableSlots, map[string]any{"date": "2025-03-04"})
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Date and appointment_type are required parameters", body["error"])

	code, body := f.call(t, ActionGetAvailableSlots, map[string]any{"date": "2025-03-04", "appointment_type": "masáž"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "vstupne_vysetrenie")
}

func TestWebhook_FindClosestSlot(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, body := f.call(t, ActionFindClosestSlot, map[string]any{"appointment_type": "sport", "preferred_date": "2025-03-04"})
	require.Equal(t, true, body["found"])
	slot := body["closest_slot"].(map[string]any)
	assert.Equal(t, "2025-03-04", slot["date"])
	assert.Equal(t, "utorok", slot["day_name"])
	assert.Equal(t, "07:00", slot["time"])
	assert.Equal(t, "130€", slot["price"])

	_, body = f.call(t, ActionFindClosestSlot, map[string]any{
		"appointment_type": "sport",
		"preferred_date":   "2025-03-08",
		"days_to_search":   "2",
	})
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["found"])
	assert.Equal(t, "Žiadne voľné termíny v najbližších 2 dňoch", body["message"])
}

func TestWebhook_BookAppointment(t *testing.T) {
	sender := &recordingSender{}
	f := newFixture(t, nil, sender)

	code, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T09:00"))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["success"], body)
	assert.Equal(t, "Termín bol úspešne rezervovaný", body["message"])
	assert.Equal(t, true, body["sms_sent"])

	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "Ján Novák", appt["patient_name"])
	assert.Equal(t, "04.03.2025", appt["date"])
	assert.Equal(t, "09:00", appt["time"])
	assert.EqualValues(t, 1, appt["order_number"])
	assert.NotEmpty(t, appt["id"])

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+421910123456", sender.sent[0].To)
	assert.Equal(t, messaging.KindConfirmation, sender.sent[0].Kind)
	assert.Contains(t, sender.sent[0].Body, "Poradové číslo: 1. Hradí poisťovňa.")

	consult := bookParams("2025-03-04T07:30")
	consult["appointment_type"] = "konzultacia"
	_, body = f.call(t, ActionBookAppointment, consult)
	require.Equal(t, true, body["success"], body)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].Body, "Cena 30€ v hotovosti.")

	logs, err := f.calls.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ActionBookAppointment, logs[1].Action)
	assert.True(t, logs[1].Success)
	assert.Equal(t, "***3456", logs[1].Phone)
}

func TestWebhook_BookAppointmentConflictOffersAlternatives(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T09:00"))
	require.Equal(t, true, body["success"])
	assert.Equal(t, false, body["sms_sent"])

	code, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T09:00"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["errors"])
	assert.Len(t, body["suggested_slots"], 5)

	alts := body["alternatives"].([]any)
	require.NotEmpty(t, alts)
	first := alts[0].(map[string]any)
	assert.Equal(t, "2025-03-04", first["date"])
	assert.Equal(t, "utorok", first["day_name"])
	assert.Len(t, first["available_slots"], 3)
}

func TestWebhook_BookAppointmentRequiresFields(t *testing.T) {
	f := newFixture(t, nil, nil)

	params := bookParams("2025-03-04T09:00")
	delete(params, "insurance")
	_, body := f.call(t, ActionBookAppointment, params)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Povinné údaje: appointment_type, date_time, patient_name, patient_surname, phone, insurance", body["error"])

	_, body = f.call(t, ActionBookAppointment, bookParams("zajtra ráno"))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "zajtra ráno")
}

func TestWebhook_CancelAppointment(t *testing.T) {
	sender := &recordingSender{}
	f := newFixture(t, nil, sender)
	_, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T10:00"))
	require.Equal(t, true, body["success"])

	cancel := map[string]any{"patient_name": "Ján Novák", "phone": "+421910123456", "appointment_date": "2025-03-04"}
	_, body = f.call(t, ActionCancelAppointment, cancel)
	require.Equal(t, true, body["success"], body)
	assert.Equal(t, "Termín bol úspešne zrušený", body["message"])
	assert.Equal(t, "10:00", body["cancelled_appointment"].(map[string]any)["time"])
	assert.Equal(t, true, body["sms_sent"])
	assert.Equal(t, messaging.KindCancellation, sender.sent[len(sender.sent)-1].Kind)

	_, body = f.call(t, ActionCancelAppointment, cancel)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, msgNotFound, body["error"])

	_, body = f.call(t, ActionCancelAppointment, map[string]any{"patient_name": "Ján Novák"})
	assert.Equal(t, "Povinné údaje: patient_name, phone, appointment_date", body["error"])
}

func TestWebhook_RescheduleAppointment(t *testing.T) {
	sender := &recordingSender{}
	f := newFixture(t, nil, sender)
	_, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T09:00"))
	require.Equal(t, true, body["success"])

	_, body = f.call(t, ActionRescheduleAppointment, map[string]any{
		"patient_name":  "Ján Novák",
		"phone":         "0910123456",
		"old_date":      "2025-03-04",
		"new_date_time": "2025-03-05T10:00",
	})
	require.Equal(t, true, body["success"], body)
	assert.Equal(t, "Termín bol úspešne presunutý", body["message"])
	assert.Equal(t, "09:00", body["old_appointment"].(map[string]any)["time"])
	newAppt := body["new_appointment"].(map[string]any)
	assert.Equal(t, "05.03.2025", newAppt["date"])
	assert.Equal(t, "10:00", newAppt["time"])
	assert.EqualValues(t, 1, newAppt["order_number"])
	assert.Equal(t, true, body["sms_sent"])
	assert.Equal(t, 1, f.store.(*calendar.MemoryStore).Len())
}

func TestWebhook_UpstreamFailure(t *testing.T) {
	f := newFixture(t, downStore{}, nil)

	code, body := f.call(t, ActionGetAvailableSlots, map[string]any{"date": "2025-03-04", "appointment_type": "vstupne"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, msgUpstream, body["error"])

	logs, err := f.calls.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
}

func TestWebhook_SendFallbackSMS(t *testing.T) {
	disabled := newFixture(t, nil, nil)
	_, body := disabled.call(t, ActionSendFallbackSMS, map[string]any{"phone": "0910123456", "message": "Zavolajte nám"})
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "SMS sa nepodarilo odoslať", body["message"])

	sender := &recordingSender{}
	f := newFixture(t, nil, sender)
	_, body = f.call(t, ActionSendFallbackSMS, map[string]any{"phone": "0910123456", "message": "Zavolajte nám"})
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "SMS odoslaná", body["message"])
	require.Len(t, sender.sent, 1)
	assert.Equal(t, messaging.KindFallback, sender.sent[0].Kind)

	_, body = f.call(t, ActionSendFallbackSMS, map[string]any{"phone": "0910123456"})
	assert.Equal(t, "phone and message are required", body["error"])
}

func TestWebhook_NotificationFailureKeepsBooking(t *testing.T) {
	sender := &recordingSender{err: errors.New("twilio down")}
	f := newFixture(t, nil, sender)

	_, body := f.call(t, ActionBookAppointment, bookParams("2025-03-04T09:00"))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["sms_sent"])
	assert.Equal(t, 1, f.store.(*calendar.MemoryStore).Len())
}
