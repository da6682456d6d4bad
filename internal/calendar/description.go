package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Labels used in event descriptions. Staff read these in the calendar UI,
// and the parser below depends on them.
const (
	orderLabel     = "🔢 PORADOVÉ ČÍSLO:"
	typeLabel      = "Typ vyšetrenia:"
	patientLabel   = "Pacient:"
	phoneLabel     = "Telefón:"
	insuranceLabel = "Poisťovňa:"
	emailLabel     = "Email:"
	durationLabel  = "Trvanie:"
	priceLabel     = "Cena:"
	createdLabel   = "Vytvorené:"

	insurancePaid = "hradí poisťovňa"
	createdLayout = "02.01.2006 15:04:05"
)

var (
	orderLineRe     = regexp.MustCompile(`PORADOVÉ ČÍSLO:\s*(\d+)`)
	phoneLineRe     = regexp.MustCompile(`Telefón:\s*([^\n]+)`)
	insuranceLineRe = regexp.MustCompile(`Poisťovňa:\s*([^\n]+)`)
	patientLineRe   = regexp.MustCompile(`Pacient:\s*([^\n]+)`)
	emailLineRe     = regexp.MustCompile(`Email:\s*([^\n]+)`)
)

// Details is the structured content of a booking event description.
type Details struct {
	OrderNumber     int
	TypeName        string
	PatientName     string
	Phone           string
	Insurance       string
	Email           string
	DurationMinutes int
	Price           int
	CreatedAt       time.Time
}

// FormatSummary renders "{type display name} - {patient full name}".
func FormatSummary(typeName, patientName string) string {
	return typeName + " - " + patientName
}

// FormatDescription renders d as the multi-line event description.
func FormatDescription(d Details) string {
	var b strings.Builder
	if d.OrderNumber > 0 {
		fmt.Fprintf(&b, "%s %d\n\n", orderLabel, d.OrderNumber)
	}
	insurance := d.Insurance
	if insurance == "" {
		insurance = "N/A"
	}
	price := insurancePaid
	if d.Price > 0 {
		price = fmt.Sprintf("%d€", d.Price)
	}
	duration := d.DurationMinutes
	if duration <= 0 {
		duration = 30
	}
	fmt.Fprintf(&b, "%s %s\n", typeLabel, d.TypeName)
	fmt.Fprintf(&b, "%s %s\n", patientLabel, d.PatientName)
	fmt.Fprintf(&b, "%s %s\n", phoneLabel, d.Phone)
	fmt.Fprintf(&b, "%s %s\n", insuranceLabel, insurance)
	if d.Email != "" {
		fmt.Fprintf(&b, "%s %s\n", emailLabel, d.Email)
	}
	fmt.Fprintf(&b, "%s %d minút\n", durationLabel, duration)
	fmt.Fprintf(&b, "%s %s\n", priceLabel, price)
	fmt.Fprintf(&b, "%s %s", createdLabel, d.CreatedAt.Format(createdLayout))
	return b.String()
}

// ParseDescription recovers the fields the engine needs from a description.
// Missing lines leave zero values.
func ParseDescription(desc string) Details {
	var d Details
	if m := orderLineRe.FindStringSubmatch(desc); m != nil {
		d.OrderNumber, _ = strconv.Atoi(m[1])
	}
	d.Phone = firstGroup(phoneLineRe, desc)
	d.PatientName = firstGroup(patientLineRe, desc)
	d.Email = firstGroup(emailLineRe, desc)
	if ins := firstGroup(insuranceLineRe, desc); ins != "N/A" {
		d.Insurance = ins
	}
	return d
}

// RecordedPhone extracts the raw phone line value from a description.
func RecordedPhone(desc string) string {
	return firstGroup(phoneLineRe, desc)
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
