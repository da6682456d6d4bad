package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/pkg/logging"
)

var twilioSendTracer = otel.Tracer("rehacentrum.internal.messaging.twilio_send")

const twilioAPIBase = "https://api.twilio.com"

// TwilioSender posts SMS messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	logger     *logging.Logger
}

// TwilioOption customises a TwilioSender.
type TwilioOption func(*TwilioSender)

// WithTwilioBaseURL points the sender at another API host.
func WithTwilioBaseURL(base string) TwilioOption {
	return func(s *TwilioSender) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithTwilioHTTPClient replaces the HTTP client.
func WithTwilioHTTPClient(c *http.Client) TwilioOption {
	return func(s *TwilioSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, defaultFrom string, logger *logging.Logger, opts ...TwilioOption) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Sender = (*TwilioSender)(nil)

// Send dispatches a single SMS, retrying transient failures.
func (s *TwilioSender) Send(ctx context.Context, msg SMS) (Receipt, error) {
	if s.accountSID == "" || s.authToken == "" {
		return Receipt{}, errors.New("messaging: twilio credentials missing")
	}
	if msg.To == "" {
		return Receipt{}, errors.New("messaging: to required")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.From == "" {
		return Receipt{}, errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return Receipt{}, errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("rehacentrum.sms_kind", string(msg.Kind)),
		attribute.String("rehacentrum.to", patient.MaskPhone(msg.To)),
		attribute.Int("rehacentrum.segments", Segments(msg.Body)),
	)

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("From", msg.From)
	payload.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var receipt Receipt
				if len(body) > 0 {
					_ = json.Unmarshal(body, &receipt)
				}
				s.logger.Info("twilio sms sent", "kind", msg.Kind, "to", patient.MaskPhone(msg.To), "sid", receipt.SID)
				return receipt, nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				return Receipt{}, ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return Receipt{}, lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	// Fallback: return raw body (truncated by ReadAll limit).
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
