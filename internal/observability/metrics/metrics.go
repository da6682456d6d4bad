package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking flows.
type SchedulingMetrics struct {
	operationsTotal *prometheus.CounterVec
	slotsReturned   *prometheus.HistogramVec
	calendarLatency *prometheus.HistogramVec
	smsTotal        *prometheus.CounterVec
	webhookActions  *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rehacentrum",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Booking, cancellation and reschedule attempts by outcome",
		}, []string{"operation", "type", "outcome"}),
		slotsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rehacentrum",
			Subsystem: "scheduling",
			Name:      "available_slots",
			Help:      "Number of free slots returned per availability query",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 40},
		}, []string{"type"}),
		calendarLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rehacentrum",
			Subsystem: "calendar",
			Name:      "request_latency_seconds",
			Help:      "Latency of calendar store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		smsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rehacentrum",
			Subsystem: "messaging",
			Name:      "sms_total",
			Help:      "Outbound SMS notifications by kind and status",
		}, []string{"kind", "status"}),
		webhookActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rehacentrum",
			Subsystem: "webhook",
			Name:      "actions_total",
			Help:      "Voice-agent webhook actions by result",
		}, []string{"action", "success"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.slotsReturned, m.calendarLatency, m.smsTotal, m.webhookActions)
	return m
}

// ObserveOperation counts one scheduling operation. outcome is one of
// ok, invalid, conflict, not_found, error.
func (m *SchedulingMetrics) ObserveOperation(operation, typeKey, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, typeKey, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlots(typeKey string, n int) {
	if m == nil {
		return
	}
	m.slotsReturned.WithLabelValues(typeKey).Observe(float64(n))
}

func (m *SchedulingMetrics) ObserveCalendarCall(method string, failed bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.calendarLatency.WithLabelValues(method, status).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveSMS(kind, status string) {
	if m == nil {
		return
	}
	m.smsTotal.WithLabelValues(kind, status).Inc()
}

func (m *SchedulingMetrics) ObserveWebhookAction(action string, success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.webhookActions.WithLabelValues(action, label).Inc()
}
