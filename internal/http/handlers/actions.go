package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rehacentrum/booking-engine/internal/messaging"
	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
)

// maxListedSlots caps how many slots are read out to a caller.
const maxListedSlots = 10

const defaultClosestDays = 7

func (h *WebhookHandler) getAvailableSlots(ctx context.Context, p params) (int, map[string]any) {
	if p.str("date") == "" || p.str("appointment_type") == "" {
		return http.StatusOK, map[string]any{"success": false, "error": "Date and appointment_type are required parameters"}
	}
	loc := h.engine.Location()
	date, err := scheduling.ParseDate(p.str("date"), loc)
	if err != nil {
		return h.failure(ActionGetAvailableSlots, err)
	}
	typ, slots, err := h.engine.GetAvailableSlots(ctx, date, p.str("appointment_type"))
	if err != nil {
		return h.failure(ActionGetAvailableSlots, err)
	}
	return http.StatusOK, map[string]any{
		"success":           true,
		"date":              date.Format("2006-01-02"),
		"appointment_type":  typ.Name,
		"total_slots":       len(slots),
		"slots":             slotView(slots, maxListedSlots),
		"price":             typ.PriceText(),
		"insurance_covered": typ.InsuranceCovered,
		"requirements":      typ.Requirements,
	}
}

func (h *WebhookHandler) findClosestSlot(ctx context.Context, p params) (int, map[string]any) {
	if p.str("appointment_type") == "" {
		return http.StatusOK, map[string]any{"success": false, "error": "appointment_type is required"}
	}
	var from time.Time
	if raw := p.str("preferred_date"); raw != "" {
		d, err := scheduling.ParseDate(raw, h.engine.Location())
		if err != nil {
			return h.failure(ActionFindClosestSlot, err)
		}
		from = d
	}
	days := p.intOr("days_to_search", defaultClosestDays)

	found, ok, err := h.engine.FindClosestSlot(ctx, p.str("appointment_type"), from, days)
	if err != nil {
		return h.failure(ActionFindClosestSlot, err)
	}
	if !ok {
		return http.StatusOK, map[string]any{
			"success": true,
			"found":   false,
			"message": fmt.Sprintf("Žiadne voľné termíny v najbližších %d dňoch", days),
		}
	}
	start := found.Slot.Start.In(h.engine.Location())
	return http.StatusOK, map[string]any{
		"success": true,
		"found":   true,
		"closest_slot": map[string]any{
			"date":                start.Format("2006-01-02"),
			"day_name":            dayName(start),
			"time":                found.Slot.Time,
			"datetime":            start.Format(time.RFC3339),
			"days_from_preferred": found.DaysFromStart,
			"appointment_type":    found.Type.Name,
			"price":               found.Type.PriceText(),
			"insurance_covered":   found.Type.InsuranceCovered,
		},
	}
}

func (h *WebhookHandler) bookAppointment(ctx context.Context, p params) (int, map[string]any) {
	if len(p.missing("appointment_type", "date_time", "patient_name", "patient_surname", "phone", "insurance")) > 0 {
		return required("appointment_type", "date_time", "patient_name", "patient_surname", "phone", "insurance")
	}
	loc := h.engine.Location()
	start, err := scheduling.ParseDateTime(p.str("date_time"), loc)
	if err != nil {
		return h.failure(ActionBookAppointment, err)
	}
	b, err := h.engine.BookAppointment(ctx, scheduling.BookingRequest{
		Patient: patient.Patient{
			Name:      p.str("patient_name"),
			Surname:   p.str("patient_surname"),
			Phone:     p.str("phone"),
			Insurance: p.str("insurance"),
			Email:     p.str("email"),
			BirthID:   p.str("birth_id"),
		},
		Type:  p.str("appointment_type"),
		Start: start,
	})
	if err != nil {
		return h.failure(ActionBookAppointment, err)
	}

	at := b.Event.Start.In(loc)
	sent := h.notify(messaging.KindConfirmation, func() error {
		return h.notifier.SendConfirmation(ctx, b.Patient.Phone, messaging.NewNotice(b.Type.Key, b.Patient.FullName(), at, b.OrderNumber).Priced(b.Type.Price))
	})
	return http.StatusOK, map[string]any{
		"success": true,
		"message": "Termín bol úspešne rezervovaný",
		"appointment": map[string]any{
			"id":                b.Event.ID,
			"patient_name":      b.Patient.FullName(),
			"appointment_type":  b.Type.Name,
			"date":              at.Format("02.01.2006"),
			"time":              at.Format("15:04"),
			"order_number":      orderNumber(b.OrderNumber),
			"price":             b.Type.PriceText(),
			"insurance_covered": b.Type.InsuranceCovered,
			"requirements":      b.Type.Requirements,
		},
		"sms_sent": sent,
	}
}

func (h *WebhookHandler) cancelAppointment(ctx context.Context, p params) (int, map[string]any) {
	if len(p.missing("patient_name", "phone", "appointment_date")) > 0 {
		return required("patient_name", "phone", "appointment_date")
	}
	loc := h.engine.Location()
	date, err := scheduling.ParseDate(p.str("appointment_date"), loc)
	if err != nil {
		return h.failure(ActionCancelAppointment, err)
	}
	c, err := h.engine.CancelAppointment(ctx, p.str("patient_name"), p.str("phone"), date)
	if err != nil {
		return h.failure(ActionCancelAppointment, err)
	}

	at := c.Event.Start.In(loc)
	sent := h.notify(messaging.KindCancellation, func() error {
		return h.notifier.SendCancellation(ctx, p.str("phone"), messaging.NewNotice(c.Type.Key, p.str("patient_name"), at, 0))
	})
	return http.StatusOK, map[string]any{
		"success": true,
		"message": "Termín bol úspešne zrušený",
		"cancelled_appointment": map[string]any{
			"patient_name": p.str("patient_name"),
			"date":         at.Format("02.01.2006"),
			"time":         at.Format("15:04"),
		},
		"sms_sent": sent,
	}
}

func (h *WebhookHandler) rescheduleAppointment(ctx context.Context, p params) (int, map[string]any) {
	if len(p.missing("patient_name", "phone", "old_date", "new_date_time")) > 0 {
		return required("patient_name", "phone", "old_date", "new_date_time")
	}
	loc := h.engine.Location()
	oldDate, err := scheduling.ParseDate(p.str("old_date"), loc)
	if err != nil {
		return h.failure(ActionRescheduleAppointment, err)
	}
	newStart, err := scheduling.ParseDateTime(p.str("new_date_time"), loc)
	if err != nil {
		return h.failure(ActionRescheduleAppointment, err)
	}
	res, err := h.engine.RescheduleAppointment(ctx, scheduling.RescheduleRequest{
		Name:     p.str("patient_name"),
		Phone:    p.str("phone"),
		OldDate:  oldDate,
		NewStart: newStart,
	})
	if err != nil {
		return h.failure(ActionRescheduleAppointment, err)
	}

	oldAt := res.Old.Start.In(loc)
	newAt := res.New.Event.Start.In(loc)
	sent := h.notify(messaging.KindReschedule, func() error {
		notice := messaging.NewNotice(res.New.Type.Key, res.New.Patient.FullName(), newAt, res.New.OrderNumber).MovedFrom(oldAt)
		return h.notifier.SendReschedule(ctx, res.New.Patient.Phone, notice)
	})
	return http.StatusOK, map[string]any{
		"success": true,
		"message": "Termín bol úspešne presunutý",
		"old_appointment": map[string]any{
			"date": oldAt.Format("02.01.2006"),
			"time": oldAt.Format("15:04"),
		},
		"new_appointment": map[string]any{
			"id":           res.New.Event.ID,
			"date":         newAt.Format("02.01.2006"),
			"time":         newAt.Format("15:04"),
			"order_number": orderNumber(res.New.OrderNumber),
		},
		"sms_sent": sent,
	}
}

func (h *WebhookHandler) sendFallbackSMS(ctx context.Context, p params) (int, map[string]any) {
	if len(p.missing("phone", "message")) > 0 {
		return http.StatusOK, map[string]any{"success": false, "error": "phone and message are required"}
	}
	if !h.notifier.Enabled() {
		return http.StatusOK, map[string]any{"success": false, "message": "SMS sa nepodarilo odoslať", "error": "SMS service disabled"}
	}
	if err := h.notifier.SendFallback(ctx, p.str("phone"), p.str("message")); err != nil {
		h.logger.Warn("fallback sms failed", "phone", patient.MaskPhone(p.str("phone")), "error", err)
		return http.StatusOK, map[string]any{"success": false, "message": "SMS sa nepodarilo odoslať", "error": err.Error()}
	}
	return http.StatusOK, map[string]any{"success": true, "message": "SMS odoslaná"}
}

// notify runs send when SMS is enabled. Failures are logged and never
// fail the action.
func (h *WebhookHandler) notify(kind messaging.Kind, send func() error) bool {
	if !h.notifier.Enabled() {
		return false
	}
	if err := send(); err != nil {
		h.logger.Warn("notification not sent", "kind", string(kind), "error", err)
		return false
	}
	return true
}
