// Package messaging turns booking outcomes into patient SMS notifications.
package messaging

import (
	"context"
	"time"
	"unicode/utf8"
)

// Kind labels an outbound SMS.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindReschedule   Kind = "reschedule"
	KindFallback     Kind = "fallback"
)

// SMS is one outbound text message.
type SMS struct {
	To   string
	From string
	Body string
	Kind Kind
}

// Receipt is the provider's acknowledgement.
type Receipt struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Sender delivers an SMS.
type Sender interface {
	Send(ctx context.Context, msg SMS) (Receipt, error)
}

// Notice is the flat data the SMS templates are filled from.
type Notice struct {
	TypeKey     string
	PatientName string
	// DateShort is the day without leading zeros, e.g. 18.8.2025.
	DateShort   string
	Time        string
	OrderNumber int
	// Price in euros paid at the clinic; zero when insurance pays.
	Price int

	OldDateShort string
	OldTime      string
}

// NewNotice describes an appointment of typeKey at start.
func NewNotice(typeKey, patientName string, start time.Time, orderNumber int) Notice {
	if patientName == "" {
		patientName = "Pacient"
	}
	return Notice{
		TypeKey:     typeKey,
		PatientName: patientName,
		DateShort:   start.Format("2.1.2006"),
		Time:        start.Format("15:04"),
		OrderNumber: orderNumber,
	}
}

// MovedFrom records the previous start of a rescheduled appointment.
func (n Notice) MovedFrom(old time.Time) Notice {
	n.OldDateShort = old.Format("2.1.2006")
	n.OldTime = old.Format("15:04")
	return n
}

// Priced sets the amount the patient pays at the clinic.
func (n Notice) Priced(price int) Notice {
	n.Price = price
	return n
}

// Segments estimates how many SMS parts body needs. Slovak diacritics force
// UCS-2 encoding: 70 characters for one part, 67 per part beyond that.
func Segments(body string) int {
	n := utf8.RuneCountInString(body)
	switch {
	case n == 0:
		return 0
	case n <= 70:
		return 1
	default:
		return (n + 66) / 67
	}
}
