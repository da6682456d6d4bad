package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notice struct {
	PatientName  string
	DateShort    string
	Time         string
	OrderNumber  int
	Price        int
	OldDateShort string
	OldTime      string
}

func TestRendererRender(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("greet", "Hello {{.Name}}", map[string]string{"Name": "Patient"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Patient", out)

	_, err = r.Render("bad", "Hello {{.Missing}}", map[string]string{"Name": "x"})
	assert.Error(t, err, "expected error for missing key")

	_, err = r.Render("empty", "", nil)
	assert.Error(t, err)
}

func TestConfirmationTemplates(t *testing.T) {
	r := NewRenderer()
	n := notice{PatientName: "Ján Novák", DateShort: "4.3.2025", Time: "09:00", OrderNumber: 3}

	out, err := r.Render(Confirmation, ConfirmationFor("vstupne_vysetrenie"), n)
	require.NoError(t, err)
	assert.Equal(t, "Dobrý deň Ján Novák, potvrdzujeme Vám termín vstupného vyšetrenia 4.3.2025 o 09:00. "+
		"Poradové číslo: 3. Hradí poisťovňa. Prineste si poukaz a zdravotnú kartičku. Rehacentrum Humenné", out)

	sports := notice{PatientName: "Ján Novák", DateShort: "4.3.2025", Time: "07:00", Price: 130}
	out, err = r.Render(Confirmation, ConfirmationFor("sportova_prehliadka"), sports)
	require.NoError(t, err)
	assert.NotContains(t, out, "Poradové číslo")
	assert.Contains(t, out, "o 07:00. Cena 130€ v hotovosti. Príďte nalačno")

	out, err = r.Render(Confirmation, ConfirmationFor("masaz"), n)
	require.NoError(t, err)
	assert.Equal(t, "Dobrý deň Ján Novák, potvrdzujeme Vám termín 4.3.2025 o 09:00. Rehacentrum Humenné", out)
}

func TestConfirmationTemplatesFollowCatalogOverrides(t *testing.T) {
	r := NewRenderer()

	// Sports numbered and free of charge.
	n := notice{PatientName: "Ján Novák", DateShort: "4.3.2025", Time: "07:00", OrderNumber: 2}
	out, err := r.Render(Confirmation, ConfirmationFor("sportova_prehliadka"), n)
	require.NoError(t, err)
	assert.Contains(t, out, "o 07:00. Poradové číslo: 2. Hradí poisťovňa. Príďte nalačno")

	// Consultation unnumbered at a new price.
	n = notice{PatientName: "Ján Novák", DateShort: "4.3.2025", Time: "07:30", Price: 45}
	out, err = r.Render(Confirmation, ConfirmationFor("konzultacia"), n)
	require.NoError(t, err)
	assert.Equal(t, "Dobrý deň Ján Novák, potvrdzujeme Vám termín konzultácie 4.3.2025 o 07:30. "+
		"Cena 45€ v hotovosti. Rehacentrum Humenné", out)
	assert.NotContains(t, out, "Poradové číslo: 0")
}

func TestRescheduleTemplate(t *testing.T) {
	r := NewRenderer()
	n := notice{PatientName: "Ján Novák", DateShort: "5.3.2025", Time: "10:00", OldDateShort: "4.3.2025", OldTime: "09:00"}

	out, err := r.Render(Reschedule, RescheduleText(), n)
	require.NoError(t, err)
	assert.Equal(t, "Dobrý deň Ján Novák, Váš termín bol presunutý z 4.3.2025 09:00 na 5.3.2025 o 10:00. Rehacentrum Humenné", out)

	n.OrderNumber = 2
	out, err = r.Render(Reschedule, RescheduleText(), n)
	require.NoError(t, err)
	assert.Contains(t, out, "o 10:00. Poradové číslo: 2. Rehacentrum")
}
