package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rehacentrum/booking-engine/internal/messaging/templates"
	"github.com/rehacentrum/booking-engine/internal/observability/metrics"
	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

// ErrDisabled is returned by a Notifier without a sender.
var ErrDisabled = errors.New("messaging: sms disabled")

// Notifier renders and sends patient notifications. Delivery problems are
// returned to the caller, which must not fail the booking because of them.
type Notifier struct {
	sender   Sender
	renderer *templates.Renderer
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
}

// NewNotifier wraps sender; a nil sender disables every notification.
func NewNotifier(sender Sender, m *metrics.SchedulingMetrics, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{sender: sender, renderer: templates.NewRenderer(), metrics: m, logger: logger}
}

// Enabled reports whether messages are actually sent.
func (n *Notifier) Enabled() bool { return n != nil && n.sender != nil }

// SendConfirmation sends the type-specific booking confirmation.
func (n *Notifier) SendConfirmation(ctx context.Context, to string, notice Notice) error {
	return n.send(ctx, to, KindConfirmation, templates.Confirmation, templates.ConfirmationFor(notice.TypeKey), notice)
}

// SendCancellation tells the patient the appointment was removed.
func (n *Notifier) SendCancellation(ctx context.Context, to string, notice Notice) error {
	return n.send(ctx, to, KindCancellation, templates.Cancellation, templates.CancellationText(), notice)
}

// SendReschedule reports the old and the new time.
func (n *Notifier) SendReschedule(ctx context.Context, to string, notice Notice) error {
	return n.send(ctx, to, KindReschedule, templates.Reschedule, templates.RescheduleText(), notice)
}

// SendFallback sends free text, signed, for cases the voice agent could not
// finish.
func (n *Notifier) SendFallback(ctx context.Context, to, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("messaging: fallback text required")
	}
	return n.deliver(ctx, SMS{To: to, Body: text + " " + templates.Signature, Kind: KindFallback})
}

func (n *Notifier) send(ctx context.Context, to string, kind Kind, name, tmpl string, notice Notice) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	body, err := n.renderer.Render(name, tmpl, notice)
	if err != nil {
		n.metrics.ObserveSMS(string(kind), "render_error")
		return fmt.Errorf("messaging: render %s: %w", kind, err)
	}
	return n.deliver(ctx, SMS{To: to, Body: body, Kind: kind})
}

func (n *Notifier) deliver(ctx context.Context, msg SMS) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	msg.To = patient.NormalizePhone(msg.To)
	if !patient.IsCanonicalPhone(msg.To) {
		n.metrics.ObserveSMS(string(msg.Kind), "invalid_recipient")
		return fmt.Errorf("messaging: invalid recipient %q", patient.MaskPhone(msg.To))
	}
	if _, err := n.sender.Send(ctx, msg); err != nil {
		n.metrics.ObserveSMS(string(msg.Kind), "failed")
		n.logger.Warn("sms not delivered", "kind", msg.Kind, "to", patient.MaskPhone(msg.To), "error", err)
		return err
	}
	n.metrics.ObserveSMS(string(msg.Kind), "sent")
	return nil
}
