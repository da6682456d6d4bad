package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTwilio(t *testing.T, handler http.HandlerFunc) (*TwilioSender, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	s := NewTwilioSender("AC123", "secret", "+421900000000", nil, WithTwilioBaseURL(srv.URL))
	s.backoff = func(int) time.Duration { return time.Millisecond }
	return s, &calls
}

func TestTwilioSenderSend(t *testing.T) {
	s, calls := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+421910123456", r.PostForm.Get("To"))
		assert.Equal(t, "+421900000000", r.PostForm.Get("From"))
		assert.Equal(t, "Ahoj", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	receipt, err := s.Send(context.Background(), SMS{To: "+421910123456", Body: "Ahoj", Kind: KindConfirmation})
	require.NoError(t, err)
	assert.Equal(t, Receipt{SID: "SM1", Status: "queued"}, receipt)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTwilioSenderRetriesServerErrors(t *testing.T) {
	s, calls := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := s.Send(context.Background(), SMS{To: "+421910123456", Body: "Ahoj"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestTwilioSenderDoesNotRetryClientErrors(t *testing.T) {
	s, calls := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	})
	_, err := s.Send(context.Background(), SMS{To: "+421910123456", Body: "Ahoj"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400 code 21211: Invalid 'To' Phone Number")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestTwilioSenderValidatesInput(t *testing.T) {
	s := NewTwilioSender("", "", "", nil)
	_, err := s.Send(context.Background(), SMS{To: "+421910123456", Body: "x"})
	assert.ErrorContains(t, err, "credentials missing")

	s = NewTwilioSender("AC1", "tok", "", nil)
	_, err = s.Send(context.Background(), SMS{To: "+421910123456", Body: "x"})
	assert.ErrorContains(t, err, "from required")
	_, err = s.Send(context.Background(), SMS{From: "+421900000000", To: "+421910123456", Body: "  "})
	assert.ErrorContains(t, err, "body required")
}
