package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []SMS
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg SMS) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Receipt{}, r.err
	}
	r.sent = append(r.sent, msg)
	return Receipt{SID: "SM1"}, nil
}

var start = time.Date(2025, 8, 18, 15, 30, 0, 0, time.UTC)

func TestNotifierConfirmation(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil, nil)

	err := n.SendConfirmation(context.Background(), "0910 123 456", NewNotice("konzultacia", "Ján Novák", start, 4).Priced(30))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "+421910123456", msg.To)
	assert.Equal(t, KindConfirmation, msg.Kind)
	assert.Equal(t, "Dobrý deň Ján Novák, potvrdzujeme Vám termín konzultácie 18.8.2025 o 15:30. "+
		"Poradové číslo: 4. Cena 30€ v hotovosti. Rehacentrum Humenné", msg.Body)
}

func TestNotifierCancellationAndReschedule(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil, nil)
	ctx := context.Background()

	require.NoError(t, n.SendCancellation(ctx, "+421910123456", NewNotice("", "", start, 0)))
	assert.Equal(t, "Dobrý deň Pacient, Váš termín na 18.8.2025 o 15:30 bol zrušený. "+
		"Pre ďalšie informácie nás kontaktujte. Rehacentrum Humenné", sender.sent[0].Body)

	notice := NewNotice("vstupne_vysetrenie", "Ján Novák", start.AddDate(0, 0, 1), 2).MovedFrom(start)
	require.NoError(t, n.SendReschedule(ctx, "+421910123456", notice))
	assert.Equal(t, "Dobrý deň Ján Novák, Váš termín bol presunutý z 18.8.2025 15:30 na 19.8.2025 o 15:30. "+
		"Poradové číslo: 2. Rehacentrum Humenné", sender.sent[1].Body)
	assert.Equal(t, KindReschedule, sender.sent[1].Kind)
}

func TestNotifierFallback(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil, nil)

	require.NoError(t, n.SendFallback(context.Background(), "+421910123456", "Zavolajte nám prosím."))
	assert.Equal(t, "Zavolajte nám prosím. Rehacentrum Humenné", sender.sent[0].Body)
	assert.Error(t, n.SendFallback(context.Background(), "+421910123456", " "))
}

func TestNotifierDisabled(t *testing.T) {
	n := NewNotifier(nil, nil, nil)
	assert.False(t, n.Enabled())
	err := n.SendConfirmation(context.Background(), "+421910123456", NewNotice("konzultacia", "Ján", start, 1))
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, n.SendFallback(context.Background(), "+421910123456", "x"), ErrDisabled)
}

func TestNotifierRejectsBadRecipient(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil, nil)
	err := n.SendConfirmation(context.Background(), "12345", NewNotice("konzultacia", "Ján", start, 1))
	assert.ErrorContains(t, err, "invalid recipient")
	assert.Empty(t, sender.sent)
}

func TestNotifierSurfacesSendError(t *testing.T) {
	boom := errors.New("boom")
	n := NewNotifier(&recordingSender{err: boom}, nil, nil)
	err := n.SendConfirmation(context.Background(), "+421910123456", NewNotice("konzultacia", "Ján", start, 1))
	assert.ErrorIs(t, err, boom)
}

func TestSegments(t *testing.T) {
	assert.Equal(t, 0, Segments(""))
	assert.Equal(t, 1, Segments("Dobrý deň"))
	body := make([]rune, 140)
	for i := range body {
		body[i] = 'č'
	}
	assert.Equal(t, 3, Segments(string(body)))
}
