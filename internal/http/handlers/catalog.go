package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rehacentrum/booking-engine/internal/scheduling"
	"github.com/rehacentrum/booking-engine/internal/webhooklog"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// CatalogHandler serves the read-only REST mirrors of the webhook.
type CatalogHandler struct {
	engine Scheduler
	calls  webhooklog.Log
	logger *logging.Logger
}

// NewCatalogHandler creates the REST handler. calls may be nil, which
// disables GET /api/logs.
func NewCatalogHandler(engine Scheduler, calls webhooklog.Log, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{engine: engine, calls: calls, logger: logger}
}

// AppointmentTypes handles GET /api/appointment-types
func (h *CatalogHandler) AppointmentTypes(w http.ResponseWriter, r *http.Request) {
	types := h.engine.Catalog().All()
	out := make([]map[string]any, 0, len(types))
	for _, t := range types {
		out = append(out, typeView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointment_types": out})
}

// Requirements handles GET /api/requirements/{type}
func (h *CatalogHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	typ, err := h.engine.ResolveType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"appointment_type": typ.Key,
		"name":             typ.Name,
		"requirements":     typ.Requirements,
	})
}

// Slots handles GET /api/slots?date=YYYY-MM-DD&type=key
func (h *CatalogHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("type") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "date and type query parameters are required"})
		return
	}
	date, err := scheduling.ParseDate(q.Get("date"), h.engine.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	typ, slots, err := h.engine.GetAvailableSlots(r.Context(), date, q.Get("type"))
	switch {
	case err == nil:
	case isInvalid(err):
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	default:
		h.logger.Error("slot lookup failed", "date", q.Get("date"), "type", q.Get("type"), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": msgUpstream})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"date":             date.Format("2006-01-02"),
		"appointment_type": typ.Key,
		"total_slots":      len(slots),
		"slots":            slotView(slots, 0),
	})
}

// Logs handles GET /api/logs?limit=N
func (h *CatalogHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.calls == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "webhook log disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.calls.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read webhook log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to read logs"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(entries), "logs": entries})
}

// HealthInfo is reported by GET /health.
type HealthInfo struct {
	Service         string `json:"service"`
	Env             string `json:"env"`
	CalendarBackend string `json:"calendar_backend"`
	SMSEnabled      bool   `json:"sms_enabled"`
	SlotLock        bool   `json:"slot_lock"`
}

// Health returns a liveness handler.
func Health(info HealthInfo) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"info":           info,
			"uptime_seconds": int64(time.Since(started).Seconds()),
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
		})
	}
}
