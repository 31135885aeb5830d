package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.NextDelay(5))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRetryPolicyDo(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: reset", ErrTransport)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(context.Background(), func() error {
		calls++
		return ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls, "server answers are not repeated")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = p.Do(ctx, func() error {
		calls++
		return ErrTransport
	})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, calls)
}

func TestReadsRetryOnlyTransportFailures(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := New(config.APIConfig{BaseURL: api.server.URL, TimeoutSeconds: 5, ReadRetries: 3})

	_, err := client.ListWorkers(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, api.count("GET /workers"))
}

// dropFirst closes the connection without an answer on the first hit of every route.
func dropFirst(api *fakeAPI, w http.ResponseWriter, r *http.Request) bool {
	if api.count(r.Method+" "+r.URL.Path) > 1 {
		return false
	}
	conn, _, err := w.(http.Hijacker).Hijack()
	require.NoError(api.t, err)
	conn.Close()
	return true
}

func TestReadsRetryAfterDroppedConnection(t *testing.T) {
	var api *fakeAPI
	api = newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if dropFirst(api, w, r) {
			return
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /workers":
			writeJSON(w, http.StatusOK, []models.Worker{{ID: 1, Name: "Ann", TimeSlot: 30}})
		case "POST /services":
			writeJSON(w, http.StatusCreated, models.Service{ID: 11, WorkerID: 1, Name: "Color", DurationMinutes: 60})
		}
	})
	client := New(config.APIConfig{BaseURL: api.server.URL, TimeoutSeconds: 5, ReadRetries: 1})
	ctx := context.Background()

	workers, err := client.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, 2, api.count("GET /workers"))

	_, err = client.CreateService(ctx, models.Service{WorkerID: 1, Name: "Color", DurationMinutes: 60})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, api.count("POST /services"), "writes are never repeated")
}
