package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/cache"
	"salonbook/internal/config"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

type fakeAPI struct {
	t       *testing.T
	mu      sync.Mutex
	hits    map[string]int
	handler func(w http.ResponseWriter, r *http.Request)
	server  *httptest.Server
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeAPI {
	f := &fakeAPI{t: t, hits: make(map[string]int), handler: handler}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(f *fakeAPI, opts ...Option) *Client {
	cfg := config.APIConfig{BaseURL: f.server.URL, TimeoutSeconds: 5, CooldownSeconds: 30}
	return New(cfg, opts...)
}

func TestHeaders(t *testing.T) {
	var got http.Header
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, models.User{ID: 1, Name: "Owner"})
	})

	client := newClient(api).WithToken("tok-1")
	ctx := ContextWithRequestID(context.Background(), "req-42")

	user, err := client.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Owner", user.Name)
	assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))
	assert.Equal(t, "req-42", got.Get("X-Request-ID"))
	assert.Equal(t, "application/json", got.Get("Accept"))

	_, err = newClient(api).CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestCheckAuthWrapped(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": models.User{ID: 5, SalonID: 2}})
	})
	user, err := newClient(api).WithToken("t").CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, int64(2), user.SalonID)
}

func TestLogin(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if req.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{Token: "abc", User: models.User{ID: 1, Email: req.Email}})
	})
	client := newClient(api)

	resp, err := client.Login(context.Background(), models.LoginRequest{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)

	_, err = client.Login(context.Background(), models.LoginRequest{Email: "a@b.co", Password: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestCachedReads(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /workers":
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": []models.Worker{{ID: 1, Name: "Ann", TimeSlot: 30}}})
		case "GET /services":
			assert.Equal(t, "1", r.URL.Query().Get("worker_id"))
			writeJSON(w, http.StatusOK, []models.Service{{ID: 10, WorkerID: 1, Name: "Cut", DurationMinutes: 30}})
		case "POST /services":
			writeJSON(w, http.StatusCreated, models.Service{ID: 11, WorkerID: 1, Name: "Color", DurationMinutes: 60})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	store := cache.NewMemoryStore(time.Minute)
	client := newClient(api, WithCache(store)).WithToken("tok")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		workers, err := client.ListWorkers(ctx)
		require.NoError(t, err)
		require.Len(t, workers, 1)
		assert.Equal(t, "Ann", workers[0].Name)
	}
	assert.Equal(t, 1, api.count("GET /workers"))

	_, err := client.ListServices(ctx, 1)
	require.NoError(t, err)
	_, err = client.ListServices(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET /services"))

	created, err := client.CreateService(ctx, models.Service{WorkerID: 1, Name: "Color", DurationMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)

	_, err = client.ListServices(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /services"))

	_, err = client.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET /workers"), "service change must not drop the workers list")
}

func TestCacheScopedPerToken(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.User{ID: 1})
	})
	store := cache.NewMemoryStore(time.Minute)
	base := newClient(api, WithCache(store))

	_, err := base.WithToken("a").GetUser(context.Background())
	require.NoError(t, err)
	_, err = base.WithToken("b").GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /user"))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status int
		body   interface{}
		want   error
	}{
		{http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."}, ErrUnauthorized},
		{http.StatusNotFound, nil, ErrNotFound},
		{http.StatusConflict, map[string]string{"message": "Slot already taken"}, ErrConflict},
		{http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"customer_phone": {"The phone format is invalid."}},
		}, ErrValidation},
		{http.StatusInternalServerError, map[string]string{"error": "boom"}, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := newClient(api).BookAppointment(context.Background(), models.BookingRequest{WorkerID: 1})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.NotEmpty(t, apiErr.Message)

			if tt.status == http.StatusUnprocessableEntity {
				fields := FieldErrors(err)
				assert.Equal(t, []string{"The phone format is invalid."}, fields["customer_phone"])
			} else {
				assert.Nil(t, FieldErrors(err))
			}
			if tt.want != ErrUnexpectedStatus {
				assert.NotErrorIs(t, err, ErrUnexpectedStatus)
			}
		})
	}
}

func TestRateLimitCooldown(t *testing.T) {
	var limited atomic.Bool
	limited.Store(true)
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if limited.Load() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Too Many Attempts."})
			return
		}
		writeJSON(w, http.StatusOK, []models.Worker{})
	})

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	client := newClient(api, WithClock(func() time.Time { return now }))
	alice := client.WithToken("alice")
	bob := client.WithToken("bob")
	ctx := context.Background()

	_, err := alice.ListWorkers(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, api.count("GET /workers"))

	limited.Store(false)
	now = now.Add(10 * time.Second)

	_, err = alice.ListWorkers(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	remaining, ok := RetryIn(err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Second, remaining)
	assert.Equal(t, 1, api.count("GET /workers"), "cool-down must not contact the API")

	_, err = bob.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /workers"))

	now = now.Add(21 * time.Second)
	_, err = alice.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, api.count("GET /workers"))
}

func TestTransportError(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	client := newClient(api)
	api.server.Close()

	_, err := client.ListWorkers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
}

func TestInvalidResponse(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := newClient(api).ListWorkers(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   events.ChangeEventPayload
}

func (p *recordingPublisher) PublishJSON(eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	if cp, ok := payload.(events.ChangeEventPayload); ok {
		p.last = cp
	}
	return nil
}

func TestBookAppointmentInvalidatesAvailability(t *testing.T) {
	slotsByDate := map[string][]string{"2025-03-10": {"10:00", "10:30"}}
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /appointments/available":
			date := r.URL.Query().Get("date")
			writeJSON(w, http.StatusOK, models.AvailableSlots{Date: date, Slots: slotsByDate[date]})
		case "POST /appointments/book":
			slotsByDate["2025-03-10"] = []string{"10:30"}
			writeJSON(w, http.StatusCreated, models.Appointment{ID: 99, WorkerID: 1, Date: "2025-03-10", StartTime: "10:00"})
		}
	})

	pub := &recordingPublisher{}
	client := newClient(api, WithCache(cache.NewMemoryStore(time.Minute)), WithEvents(pub))
	ctx := context.Background()

	before, err := client.AvailableSlots(ctx, 1, 5, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30"}, before.Slots)

	appt, err := client.BookAppointment(ctx, models.BookingRequest{WorkerID: 1, ServiceID: 5, Date: "2025-03-10", StartTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(99), appt.ID)

	after, err := client.AvailableSlots(ctx, 1, 5, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:30"}, after.Slots)
	assert.Equal(t, 2, api.count("GET /appointments/available"))

	assert.Equal(t, []string{events.EventAppointmentBooked}, pub.events)
	assert.Equal(t, int64(99), pub.last.EntityID)
	assert.Equal(t, "2025-03-10", pub.last.Date)
}

func TestFailedMutationKeepsCache(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []models.OffDay{{ID: 1, WorkerID: 3, StartDate: "2025-03-10", EndDate: "2025-03-11"}})
		default:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": map[string][]string{"end_date": {"invalid"}}})
		}
	})

	pub := &recordingPublisher{}
	client := newClient(api, WithCache(cache.NewMemoryStore(time.Minute)), WithEvents(pub)).WithToken("t")
	ctx := context.Background()

	_, err := client.ListOffDays(ctx, 3)
	require.NoError(t, err)

	_, err = client.CreateOffDay(ctx, 3, models.OffDayRequest{StartDate: "2025-03-12", EndDate: "2025-03-01"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = client.ListOffDays(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET /workers/3/off-days"))
	assert.Empty(t, pub.events)
}

func TestEndpointPaths(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /worker/4/appointments":
			assert.Equal(t, "2025-03-10", r.URL.Query().Get("date"))
			writeJSON(w, http.StatusOK, []models.Appointment{{ID: 1}})
		case "GET /salon/2":
			writeJSON(w, http.StatusOK, models.Salon{ID: 2, Workers: []models.Worker{{ID: 4}}})
		case "PUT /work-schedules/8", "POST /work-schedules":
			var s models.WorkSchedule
			_ = json.NewDecoder(r.Body).Decode(&s)
			writeJSON(w, http.StatusOK, s)
		case "DELETE /workers/4/off-days/6", "DELETE /services/9", "DELETE /workers/4":
			w.WriteHeader(http.StatusNoContent)
		case "POST /worker/appointments/create":
			writeJSON(w, http.StatusCreated, models.Appointment{ID: 12})
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := newClient(api).WithToken("t")
	ctx := context.Background()

	appts, err := client.WorkerAppointments(ctx, 4, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, appts, 1)

	salon, err := client.GetSalon(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, salon.Workers, 1)

	s, err := client.UpdateWorkSchedule(ctx, models.WorkSchedule{ID: 8, WorkerID: 4, DayOfWeek: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(8), s.ID)
	_, err = client.CreateWorkSchedule(ctx, models.WorkSchedule{WorkerID: 4, DayOfWeek: 2})
	require.NoError(t, err)

	require.NoError(t, client.DeleteOffDay(ctx, 4, 6))
	require.NoError(t, client.DeleteService(ctx, 4, 9))
	require.NoError(t, client.DeleteWorker(ctx, 4))

	created, err := client.CreateWorkerAppointment(ctx, models.CreateAppointmentRequest{WorkerID: 4, Date: "2025-03-10", StartTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), created.ID)
}

func TestFreshReadSkipsCache(t *testing.T) {
	var api *fakeAPI
	api = newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		slots := []string{"10:00", "10:30"}
		if api.count("GET /appointments/available") > 1 {
			slots = []string{"10:30"}
		}
		writeJSON(w, http.StatusOK, models.AvailableSlots{Date: "2025-03-10", Slots: slots})
	})
	client := newClient(api, WithCache(cache.NewMemoryStore(time.Minute)))
	ctx := context.Background()

	first, err := client.AvailableSlots(ctx, 1, 2, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30"}, first.Slots)

	cached, err := client.AvailableSlots(ctx, 1, 2, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, first.Slots, cached.Slots)
	assert.Equal(t, 1, api.count("GET /appointments/available"))

	fresh, err := client.AvailableSlots(WithFreshRead(ctx), 1, 2, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:30"}, fresh.Slots)
	assert.Equal(t, 2, api.count("GET /appointments/available"))

	again, err := client.AvailableSlots(ctx, 1, 2, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:30"}, again.Slots, "a fresh read refills the cache")
	assert.Equal(t, 2, api.count("GET /appointments/available"))
}
