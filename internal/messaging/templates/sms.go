package templates

// Signature closes every outbound SMS.
const Signature = "Rehacentrum Humenné"

// Template names.
const (
	Confirmation = "confirmation"
	Cancellation = "cancellation"
	Reschedule   = "reschedule"
)

// Fields available to the SMS templates: .PatientName, .DateShort (2.1.2006),
// .Time (15:04), .OrderNumber and .Price (0 when insurance pays) and, for
// reschedules, .OldDateShort and .OldTime.
const (
	orderLine   = "{{if .OrderNumber}}Poradové číslo: {{.OrderNumber}}. {{end}}"
	paymentLine = "{{if .Price}}Cena {{.Price}}€ v hotovosti.{{else}}Hradí poisťovňa.{{end}}"
)

var confirmationByType = map[string]string{
	"sportova_prehliadka": "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín športovej prehliadky {{.DateShort}} o {{.Time}}. " +
		orderLine + paymentLine + " Príďte nalačno (8 hodín), prineste si jedlo, vodu a oblečenie na prezlečenie. " + Signature,
	"vstupne_vysetrenie": "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín vstupného vyšetrenia {{.DateShort}} o {{.Time}}. " +
		orderLine + paymentLine + " Prineste si poukaz a zdravotnú kartičku. " + Signature,
	"kontrolne_vysetrenie": "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín kontrolného vyšetrenia {{.DateShort}} o {{.Time}}. " +
		orderLine + paymentLine + " Prineste si zdravotnú kartičku a výsledky testov. " + Signature,
	"zdravotnicke_pomocky": "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín na zdravotnícke pomôcky {{.DateShort}} o {{.Time}}. " +
		orderLine + paymentLine + " Prineste si zdravotnú kartičku a lekárske správy. " + Signature,
	"konzultacia": "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín konzultácie {{.DateShort}} o {{.Time}}. " +
		orderLine + paymentLine + " " + Signature,
}

const fallbackConfirmation = "Dobrý deň {{.PatientName}}, potvrdzujeme Vám termín {{.DateShort}} o {{.Time}}. " + Signature

const cancellationText = "Dobrý deň {{.PatientName}}, Váš termín na {{.DateShort}} o {{.Time}} bol zrušený. " +
	"Pre ďalšie informácie nás kontaktujte. " + Signature

const rescheduleText = "Dobrý deň {{.PatientName}}, Váš termín bol presunutý z {{.OldDateShort}} {{.OldTime}} na {{.DateShort}} o {{.Time}}." +
	"{{if .OrderNumber}} Poradové číslo: {{.OrderNumber}}.{{end}} " + Signature

// ConfirmationFor returns the confirmation template of a type. Unknown
// types get the generic one.
func ConfirmationFor(typeKey string) string {
	if t, ok := confirmationByType[typeKey]; ok {
		return t
	}
	return fallbackConfirmation
}

// CancellationText is the cancellation template.
func CancellationText() string { return cancellationText }

// RescheduleText is the reschedule template.
func RescheduleText() string { return rescheduleText }
