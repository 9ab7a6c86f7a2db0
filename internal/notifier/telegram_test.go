package notifier

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramRequiresConfiguration(t *testing.T) {
	err := NewTelegram("", "").SendText("hello")
	assert.Error(t, err)
}

func TestTelegramRetriesUntilDelivered(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat")
	tg.APIBase = srv.URL
	tg.RetryWait = time.Millisecond
	require.NoError(t, tg.SendText("position opened"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegramGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat")
	tg.APIBase = srv.URL
	tg.MaxAttempts = 2
	tg.RetryWait = time.Millisecond
	err := tg.SendText("position closed")
	assert.ErrorContains(t, err, "429")
	assert.Equal(t, int32(2), calls.Load())
}

func TestNopDiscards(t *testing.T) {
	assert.NoError(t, Nop{}.SendText("anything"))
}
