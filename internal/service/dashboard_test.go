package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/internal/forms"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDashboardAPI struct {
	mock.Mock
}

func (m *mockDashboardAPI) GetWorker(ctx context.Context, workerID int64) (*models.Worker, error) {
	args := m.Called(ctx, workerID)
	w, _ := args.Get(0).(*models.Worker)
	return w, args.Error(1)
}

func (m *mockDashboardAPI) UpdateWorker(ctx context.Context, w models.Worker) (*models.Worker, error) {
	args := m.Called(ctx, w)
	out, _ := args.Get(0).(*models.Worker)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) ListWorkSchedules(ctx context.Context, workerID int64) ([]models.WorkSchedule, error) {
	args := m.Called(ctx, workerID)
	out, _ := args.Get(0).([]models.WorkSchedule)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) CreateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.WorkSchedule)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) UpdateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.WorkSchedule)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) ListServices(ctx context.Context, workerID int64) ([]models.Service, error) {
	args := m.Called(ctx, workerID)
	out, _ := args.Get(0).([]models.Service)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) CreateService(ctx context.Context, s models.Service) (*models.Service, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.Service)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) UpdateService(ctx context.Context, s models.Service) (*models.Service, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.Service)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) ListOffDays(ctx context.Context, workerID int64) ([]models.OffDay, error) {
	args := m.Called(ctx, workerID)
	out, _ := args.Get(0).([]models.OffDay)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) CreateOffDay(ctx context.Context, workerID int64, req models.OffDayRequest) (*models.OffDay, error) {
	args := m.Called(ctx, workerID, req)
	out, _ := args.Get(0).(*models.OffDay)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) DeleteOffDay(ctx context.Context, workerID, offDayID int64) error {
	return m.Called(ctx, workerID, offDayID).Error(0)
}

func (m *mockDashboardAPI) WorkerAppointments(ctx context.Context, workerID int64, date string) ([]models.Appointment, error) {
	args := m.Called(ctx, workerID, date)
	out, _ := args.Get(0).([]models.Appointment)
	return out, args.Error(1)
}

func (m *mockDashboardAPI) CreateWorkerAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*models.Appointment)
	return out, args.Error(1)
}

// Monday 2025-03-10, 09:00-13:00 with a 11:00-11:30 break, 30 minute slots.
var (
	monday    = "2025-03-10"
	mondayNow = time.Date(2025, 3, 10, 9, 40, 0, 0, time.UTC)
	ann       = &models.Worker{ID: 4, Name: "Ann", TimeSlot: 30}
	week      = []models.WorkSchedule{{
		WorkerID: 4, DayOfWeek: 1, IsWorking: true, StartTime: "09:00", EndTime: "13:00",
		HasBreak: true, BreakStart: "11:00", BreakEnd: "11:30",
	}}
)

func newDashboard() *DashboardService {
	logger := zerolog.Nop()
	return NewDashboardService(time.UTC, &logger)
}

func dayMocks(api *mockDashboardAPI, appts []models.Appointment, offDays []models.OffDay) {
	api.On("GetWorker", mock.Anything, int64(4)).Return(ann, nil)
	api.On("ListWorkSchedules", mock.Anything, int64(4)).Return(week, nil)
	api.On("ListOffDays", mock.Anything, int64(4)).Return(offDays, nil)
	api.On("WorkerAppointments", mock.Anything, int64(4), monday).Return(appts, nil)
	api.On("ListServices", mock.Anything, int64(4)).Return([]models.Service{
		{ID: 9, WorkerID: 4, Name: "Cut", DurationMinutes: 30},
		{ID: 10, WorkerID: 4, Name: "Color", DurationMinutes: 60},
	}, nil).Maybe()
}

func TestWorkerDay(t *testing.T) {
	api := new(mockDashboardAPI)
	dayMocks(api, []models.Appointment{{ID: 1, WorkerID: 4, Date: monday, StartTime: "10:00", EndTime: "11:00"}}, nil)

	view, err := newDashboard().WorkerDay(context.Background(), api, 4, monday, mondayNow)
	require.NoError(t, err)

	assert.Equal(t, 30, view.Interval)
	require.Len(t, view.Rows, 8)
	assert.Equal(t, "09:00", view.Rows[0].Label)
	assert.True(t, view.Rows[0].Past)
	assert.True(t, view.Rows[4].Break)
	row, ok := view.Row("10:00")
	require.True(t, ok)
	require.Len(t, row.Placements, 1)
	assert.InDelta(t, 80.0, row.Placements[0].HeightPx, 0.001)
	assert.Equal(t, []string{"11:30", "12:00", "12:30"}, view.FreeLabels())

	covered, ok := view.Row("10:30")
	require.True(t, ok)
	assert.True(t, covered.Busy)
}

func TestWorkerDayFetchError(t *testing.T) {
	api := new(mockDashboardAPI)
	api.On("GetWorker", mock.Anything, int64(4)).Return(nil, errors.New("unavailable"))
	api.On("ListWorkSchedules", mock.Anything, int64(4)).Return(week, nil)
	api.On("ListOffDays", mock.Anything, int64(4)).Return(nil, nil)
	api.On("WorkerAppointments", mock.Anything, int64(4), monday).Return(nil, nil)

	_, err := newDashboard().WorkerDay(context.Background(), api, 4, monday, mondayNow)
	assert.ErrorContains(t, err, "get worker")

	_, err = newDashboard().WorkerDay(context.Background(), api, 4, "10/03/2025", mondayNow)
	assert.Error(t, err)
}

func TestSaveSchedule(t *testing.T) {
	d := newDashboard()
	ctx := context.Background()

	t.Run("Invalid", func(t *testing.T) {
		api := new(mockDashboardAPI)
		_, err := d.SaveSchedule(ctx, api, models.WorkSchedule{DayOfWeek: 1, IsWorking: true, StartTime: "18:00", EndTime: "09:00"})
		var fe forms.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.True(t, fe.Has("start_time"))
		api.AssertNotCalled(t, "CreateWorkSchedule", mock.Anything, mock.Anything)
	})

	t.Run("CreateDayOffClearsTimes", func(t *testing.T) {
		api := new(mockDashboardAPI)
		api.On("CreateWorkSchedule", ctx, models.WorkSchedule{WorkerID: 4, DayOfWeek: 0}).
			Return(&models.WorkSchedule{ID: 3}, nil).Once()
		got, err := d.SaveSchedule(ctx, api, models.WorkSchedule{WorkerID: 4, DayOfWeek: 0, StartTime: "09:00", BreakStart: "12:00"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		api.AssertExpectations(t)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		api := new(mockDashboardAPI)
		sched := week[0]
		sched.ID = 11
		api.On("UpdateWorkSchedule", ctx, sched).Return(&sched, nil).Once()
		_, err := d.SaveSchedule(ctx, api, sched)
		require.NoError(t, err)
		api.AssertExpectations(t)
	})
}

func TestSaveService(t *testing.T) {
	d := newDashboard()
	ctx := context.Background()

	api := new(mockDashboardAPI)
	_, err := d.SaveService(ctx, api, *ann, models.Service{Name: "Cut", DurationMinutes: 45})
	var fe forms.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Has("duration"))

	api.On("CreateService", ctx, models.Service{WorkerID: 4, Name: "Cut", DurationMinutes: 60, Price: 25}).
		Return(&models.Service{ID: 1}, nil).Once()
	_, err = d.SaveService(ctx, api, *ann, models.Service{Name: "Cut", DurationMinutes: 60, Price: 25})
	require.NoError(t, err)

	api.On("UpdateService", ctx, mock.MatchedBy(func(s models.Service) bool { return s.ID == 1 })).
		Return(&models.Service{ID: 1}, nil).Once()
	_, err = d.SaveService(ctx, api, *ann, models.Service{ID: 1, Name: "Cut", DurationMinutes: 90})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUpdateTimeSlot(t *testing.T) {
	d := newDashboard()
	ctx := context.Background()
	services := []models.Service{{Name: "Cut", DurationMinutes: 30}, {Name: "Color", DurationMinutes: 90}}

	api := new(mockDashboardAPI)
	api.On("ListServices", ctx, int64(4)).Return(services, nil)
	_, err := d.UpdateTimeSlot(ctx, api, 4, 60)
	var fe forms.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.First("time_slot"), "Cut (30 min)")
	api.AssertNotCalled(t, "UpdateWorker", mock.Anything, mock.Anything)

	api.On("GetWorker", ctx, int64(4)).Return(&models.Worker{ID: 4, TimeSlot: 30}, nil).Once()
	api.On("UpdateWorker", ctx, models.Worker{ID: 4, TimeSlot: -15}).Return(&models.Worker{ID: 4, TimeSlot: -15}, nil).Once()
	w, err := d.UpdateTimeSlot(ctx, api, 4, -15)
	require.NoError(t, err)
	assert.True(t, w.DynamicSlots())
	api.AssertExpectations(t)
}

func TestOffDays(t *testing.T) {
	d := newDashboard()
	ctx := context.Background()
	api := new(mockDashboardAPI)

	_, err := d.AddOffDay(ctx, api, 4, models.OffDayRequest{StartDate: "2025-03-12", EndDate: "2025-03-11"})
	assert.Error(t, err)

	req := models.OffDayRequest{StartDate: "2025-03-11", EndDate: "2025-03-12", Reason: "course"}
	api.On("CreateOffDay", ctx, int64(4), req).Return(&models.OffDay{ID: 8}, nil).Once()
	off, err := d.AddOffDay(ctx, api, 4, req)
	require.NoError(t, err)
	assert.Equal(t, int64(8), off.ID)

	api.On("DeleteOffDay", ctx, int64(4), int64(8)).Return(nil).Once()
	assert.NoError(t, d.RemoveOffDay(ctx, api, 4, 8))
	api.AssertExpectations(t)
}

func TestCreateAppointment(t *testing.T) {
	d := newDashboard()
	ctx := context.Background()
	svcID := int64(9)
	base := models.CreateAppointmentRequest{
		WorkerID: 4, ServiceID: &svcID, Date: monday,
		CustomerName: " Kate ", CustomerPhone: "+1 555 123 4567",
	}
	booked := []models.Appointment{{ID: 1, WorkerID: 4, Date: monday, StartTime: "12:00", EndTime: "12:30"}}

	refused := []struct {
		name string
		slot string
		want error
	}{
		{"past", "09:30", ErrPastSlot},
		{"break", "11:00", ErrBreakSlot},
		{"busy", "12:00", ErrSlotBusy},
		{"off grid", "14:00", ErrClosedDay},
	}
	for _, tt := range refused {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockDashboardAPI)
			dayMocks(api, booked, nil)
			req := base
			req.StartTime = tt.slot
			_, err := d.CreateAppointment(ctx, api, req, mondayNow)
			assert.ErrorIs(t, err, tt.want)
			api.AssertNotCalled(t, "CreateWorkerAppointment", mock.Anything, mock.Anything)
		})
	}

	color := int64(10)
	spans := []struct {
		name    string
		appts   []models.Appointment
		slot    string
		service *int64
		want    error
	}{
		{"inside a longer appointment", []models.Appointment{{ID: 1, StartTime: "10:00", EndTime: "11:00"}}, "10:30", &svcID, ErrSlotBusy},
		{"runs into the break", nil, "10:30", &color, ErrBreakSlot},
		{"runs into the next appointment", booked, "11:30", &color, ErrSlotBusy},
		{"runs past closing", nil, "12:30", &color, ErrAfterHours},
	}
	for _, tt := range spans {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockDashboardAPI)
			dayMocks(api, tt.appts, nil)
			req := base
			req.StartTime = tt.slot
			req.ServiceID = tt.service
			_, err := d.CreateAppointment(ctx, api, req, mondayNow)
			assert.ErrorIs(t, err, tt.want)
			api.AssertNotCalled(t, "CreateWorkerAppointment", mock.Anything, mock.Anything)
		})
	}

	t.Run("unknown service", func(t *testing.T) {
		api := new(mockDashboardAPI)
		dayMocks(api, nil, nil)
		other := int64(99)
		req := base
		req.StartTime = "10:00"
		req.ServiceID = &other
		_, err := d.CreateAppointment(ctx, api, req, mondayNow)
		var fe forms.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.True(t, fe.Has("service_id"))
	})

	t.Run("off day", func(t *testing.T) {
		api := new(mockDashboardAPI)
		dayMocks(api, nil, []models.OffDay{{StartDate: monday, EndDate: monday}})
		req := base
		req.StartTime = "10:00"
		_, err := d.CreateAppointment(ctx, api, req, mondayNow)
		assert.ErrorIs(t, err, ErrOffDaySlot)
	})

	t.Run("invalid fields", func(t *testing.T) {
		api := new(mockDashboardAPI)
		req := models.CreateAppointmentRequest{WorkerID: 4, Date: monday, StartTime: "10:00", CustomerPhone: "1"}
		_, err := d.CreateAppointment(ctx, api, req, mondayNow)
		var fe forms.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, []string{"custom_service_duration", "custom_service_name", "customer_name", "customer_phone"}, fe.Fields())
		api.AssertNotCalled(t, "GetWorker", mock.Anything, mock.Anything)
	})

	t.Run("free slot", func(t *testing.T) {
		api := new(mockDashboardAPI)
		dayMocks(api, booked, nil)
		api.On("CreateWorkerAppointment", ctx, mock.MatchedBy(func(r models.CreateAppointmentRequest) bool {
			return r.StartTime == "10:00" && r.CustomerName == "Kate" && r.CustomerPhone == "+15551234567"
		})).Return(&models.Appointment{ID: 2}, nil).Once()

		req := base
		req.StartTime = "10:00"
		appt, err := d.CreateAppointment(ctx, api, req, mondayNow)
		require.NoError(t, err)
		assert.Equal(t, int64(2), appt.ID)
		api.AssertExpectations(t)
	})
}

func TestWeekAppointments(t *testing.T) {
	api := new(mockDashboardAPI)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		date := from.AddDate(0, 0, i).Format(models.DateLayout)
		api.On("WorkerAppointments", mock.Anything, int64(4), date).
			Return([]models.Appointment{{ID: int64(i + 1), Date: date}}, nil).Once()
	}

	days, err := newDashboard().WeekAppointments(context.Background(), api, 4, from)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-03-10", days[0].Date)
	assert.Equal(t, "2025-03-16", days[6].Date)
	assert.Equal(t, int64(7), days[6].Appointments[0].ID)
	api.AssertExpectations(t)
}
