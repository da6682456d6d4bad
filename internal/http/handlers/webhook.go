package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rehacentrum/booking-engine/internal/apptype"
	"github.com/rehacentrum/booking-engine/internal/http/middleware"
	"github.com/rehacentrum/booking-engine/internal/messaging"
	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/internal/scheduling"
	"github.com/rehacentrum/booking-engine/internal/webhooklog"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// Webhook actions understood by POST /api/booking/webhook.
const (
	ActionGetAvailableSlots     = "get_available_slots"
	ActionFindClosestSlot       = "find_closest_slot"
	ActionBookAppointment       = "book_appointment"
	ActionCancelAppointment     = "cancel_appointment"
	ActionRescheduleAppointment = "reschedule_appointment"
	ActionSendFallbackSMS       = "send_fallback_sms"
)

// SupportedActions lists every action in the order the voice agent is
// configured with.
var SupportedActions = []string{
	ActionGetAvailableSlots,
	ActionFindClosestSlot,
	ActionBookAppointment,
	ActionCancelAppointment,
	ActionRescheduleAppointment,
	ActionSendFallbackSMS,
}

const (
	msgNotFound       = "Termín sa nenašiel. Skontrolujte prosím meno, telefón a dátum."
	msgPartialFailure = "Pôvodný termín bol zrušený, ale nový sa nepodarilo vytvoriť. Recepcia Vás bude kontaktovať."
	msgUpstream       = "Kalendár je momentálne nedostupný. Skúste to prosím znovu."
	msgInternal       = "Došlo k chybe. Skúste to prosím znovu."
)

// Scheduler is the booking engine as the webhook sees it.
type Scheduler interface {
	Location() *time.Location
	Catalog() *apptype.Catalog
	ResolveType(input string) (apptype.Type, error)
	GetAvailableSlots(ctx context.Context, date time.Time, typeInput string) (apptype.Type, []scheduling.Slot, error)
	FindClosestSlot(ctx context.Context, typeInput string, from time.Time, days int) (scheduling.ClosestSlot, bool, error)
	BookAppointment(ctx context.Context, req scheduling.BookingRequest) (scheduling.Booking, error)
	CancelAppointment(ctx context.Context, name, phone string, date time.Time) (scheduling.Cancellation, error)
	RescheduleAppointment(ctx context.Context, req scheduling.RescheduleRequest) (scheduling.Reschedule, error)
}

// Notifier sends patient SMS notifications.
type Notifier interface {
	Enabled() bool
	SendConfirmation(ctx context.Context, to string, notice messaging.Notice) error
	SendCancellation(ctx context.Context, to string, notice messaging.Notice) error
	SendReschedule(ctx context.Context, to string, notice messaging.Notice) error
	SendFallback(ctx context.Context, to, text string) error
}

// WebhookConfig wires the webhook handler.
type WebhookConfig struct {
	Engine   Scheduler
	Notifier Notifier
	Calls    webhooklog.Log
	Metrics  *metrics.SchedulingMetrics
	Logger   *logging.Logger
}

// WebhookHandler dispatches voice-agent actions to the booking engine.
type WebhookHandler struct {
	engine   Scheduler
	notifier Notifier
	calls    webhooklog.Log
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	actions  map[string]actionFunc
}

// actionFunc returns the HTTP status and the JSON body of one action.
type actionFunc func(ctx context.Context, p params) (int, map[string]any)

// NewWebhookHandler creates the handler. Engine is required.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Engine == nil {
		panic("handlers: scheduling engine required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = messaging.NewNotifier(nil, cfg.Metrics, cfg.Logger)
	}
	if cfg.Calls == nil {
		cfg.Calls = webhooklog.NewMemory(webhooklog.DefaultCapacity)
	}
	h := &WebhookHandler{
		engine:   cfg.Engine,
		notifier: cfg.Notifier,
		calls:    cfg.Calls,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.Component("webhook"),
	}
	h.actions = map[string]actionFunc{
		ActionGetAvailableSlots:     h.getAvailableSlots,
		ActionFindClosestSlot:       h.findClosestSlot,
		ActionBookAppointment:       h.bookAppointment,
		ActionCancelAppointment:     h.cancelAppointment,
		ActionRescheduleAppointment: h.rescheduleAppointment,
		ActionSendFallbackSMS:       h.sendFallbackSMS,
	}
	return h
}

type webhookRequest struct {
	Action     string `json:"action"`
	Parameters params `json:"parameters"`
}

// Handle serves POST /api/booking/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req webhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":           false,
			"error":             "Missing action parameter",
			"supported_actions": SupportedActions,
		})
		return
	}
	if req.Parameters == nil {
		req.Parameters = params{}
	}

	status, body := http.StatusOK, map[string]any(nil)
	if action, ok := h.actions[req.Action]; ok {
		status, body = action(r.Context(), req.Parameters)
	} else {
		body = map[string]any{
			"success":           false,
			"error":             fmt.Sprintf("Unsupported action: %s", req.Action),
			"supported_actions": SupportedActions,
		}
	}

	h.record(r.Context(), req, body, time.Since(started))
	writeJSON(w, status, body)
}

func (h *WebhookHandler) record(ctx context.Context, req webhookRequest, body map[string]any, took time.Duration) {
	success, _ := body["success"].(bool)
	entry := webhooklog.Entry{
		RequestID:  middleware.RequestIDFromContext(ctx),
		Action:     req.Action,
		Success:    success,
		DurationMS: took.Milliseconds(),
	}
	if claims, ok := middleware.WebhookClaimsFromContext(ctx); ok {
		entry.Caller = claims.Subject
	}
	if msg, ok := body["error"].(string); ok {
		entry.Error = msg
	}
	if phone := req.Parameters.str("phone"); phone != "" {
		entry.Phone = patient.MaskPhone(phone)
	}
	if err := h.calls.Append(ctx, entry); err != nil {
		h.logger.Warn("failed to record webhook call", "action", req.Action, "error", err)
	}
	h.metrics.ObserveWebhookAction(req.Action, success)
	h.logger.Info("webhook action handled", "action", req.Action, "caller", entry.Caller, "success", success, "duration_ms", entry.DurationMS)
}

// failure maps an engine error onto the voice-agent response.
func (h *WebhookHandler) failure(action string, err error) (int, map[string]any) {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		body := map[string]any{
			"success": false,
			"error":   strings.Join(verr.Messages, "; "),
			"errors":  verr.Messages,
		}
		if len(verr.Suggestions) > 0 {
			body["suggested_slots"] = slotView(verr.Suggestions, 0)
		}
		if len(verr.Alternatives) > 0 {
			body["alternatives"] = alternativesView(verr.Alternatives)
		}
		return http.StatusOK, body
	case errors.Is(err, scheduling.ErrNotFound):
		return http.StatusOK, map[string]any{"success": false, "error": msgNotFound}
	case errors.Is(err, scheduling.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), scheduling.ErrInvalidInput.Error()+": ")
		return http.StatusOK, map[string]any{"success": false, "error": msg}
	case errors.Is(err, scheduling.ErrPartialFailure):
		h.logger.Error("webhook action left a partial write", "action", action, "error", err)
		return http.StatusInternalServerError, map[string]any{
			"success":            false,
			"error":              msgPartialFailure,
			"requires_follow_up": true,
		}
	case errors.Is(err, scheduling.ErrUpstream):
		h.logger.Error("calendar unavailable", "action", action, "error", err)
		return http.StatusBadGateway, map[string]any{"success": false, "error": msgUpstream}
	default:
		h.logger.Error("webhook action failed", "action", action, "error", err)
		return http.StatusInternalServerError, map[string]any{"success": false, "error": msgInternal}
	}
}

func required(keys ...string) (int, map[string]any) {
	return http.StatusOK, map[string]any{
		"success": false,
		"error":   "Povinné údaje: " + strings.Join(keys, ", "),
	}
}
