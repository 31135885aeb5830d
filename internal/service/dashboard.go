package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/forms"
	"salonbook/internal/models"
	"salonbook/internal/slots"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPastSlot   = errors.New("time slot is in the past")
	ErrBreakSlot  = errors.New("time slot falls on the break")
	ErrOffDaySlot = errors.New("worker is off on this day")
	ErrClosedDay  = errors.New("worker does not work on this day")
	ErrSlotBusy   = errors.New("time slot already has an appointment")
	ErrAfterHours = errors.New("appointment runs past the working day")
)

// DashboardAPI is the authenticated part of the salon API used by the owner dashboard.
type DashboardAPI interface {
	GetWorker(ctx context.Context, workerID int64) (*models.Worker, error)
	UpdateWorker(ctx context.Context, w models.Worker) (*models.Worker, error)
	ListWorkSchedules(ctx context.Context, workerID int64) ([]models.WorkSchedule, error)
	CreateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error)
	UpdateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error)
	ListServices(ctx context.Context, workerID int64) ([]models.Service, error)
	CreateService(ctx context.Context, s models.Service) (*models.Service, error)
	UpdateService(ctx context.Context, s models.Service) (*models.Service, error)
	ListOffDays(ctx context.Context, workerID int64) ([]models.OffDay, error)
	CreateOffDay(ctx context.Context, workerID int64, req models.OffDayRequest) (*models.OffDay, error)
	DeleteOffDay(ctx context.Context, workerID, offDayID int64) error
	WorkerAppointments(ctx context.Context, workerID int64, date string) ([]models.Appointment, error)
	CreateWorkerAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error)
}

type DashboardService struct {
	loc    *time.Location
	logger *zerolog.Logger
}

func NewDashboardService(loc *time.Location, logger *zerolog.Logger) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{loc: loc, logger: logger}
}

func (s *DashboardService) Location() *time.Location {
	return s.loc
}

// WorkerDay fetches everything the day grid needs, then derives it.
func (s *DashboardService) WorkerDay(ctx context.Context, api DashboardAPI, workerID int64, date string, now time.Time) (*slots.DayView, error) {
	if _, err := forms.ValidateDate(date); err != nil {
		return nil, err
	}

	in := slots.DayInput{Date: date, Now: now, Location: s.loc}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := api.GetWorker(gctx, workerID)
		if err != nil {
			return fmt.Errorf("get worker: %w", err)
		}
		in.Worker = *w
		return nil
	})
	g.Go(func() error {
		var err error
		if in.Schedules, err = api.ListWorkSchedules(gctx, workerID); err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if in.OffDays, err = api.ListOffDays(gctx, workerID); err != nil {
			return fmt.Errorf("list off-days: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if in.Appointments, err = api.WorkerAppointments(gctx, workerID, date); err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := slots.BuildDayView(in)
	if view.Misaligned {
		s.logger.Warn().Int64("worker_id", workerID).Str("date", date).
			Str("start_time", view.Schedule.StartTime).Int("interval", view.Interval).
			Msg("schedule start is not aligned to the slot interval")
	}
	return &view, nil
}

// SaveSchedule validates a weekday schedule and creates or updates it.
func (s *DashboardService) SaveSchedule(ctx context.Context, api DashboardAPI, sched models.WorkSchedule) (*models.WorkSchedule, error) {
	if !sched.IsWorking {
		sched.StartTime, sched.EndTime = "", ""
		sched.HasBreak = false
	}
	if !sched.HasBreak {
		sched.BreakStart, sched.BreakEnd = "", ""
	}
	if err := forms.ValidateSchedule(sched).Err(); err != nil {
		return nil, err
	}
	if sched.ID != 0 {
		return api.UpdateWorkSchedule(ctx, sched)
	}
	return api.CreateWorkSchedule(ctx, sched)
}

// SaveService checks the duration fits the worker's slot size before saving.
func (s *DashboardService) SaveService(ctx context.Context, api DashboardAPI, worker models.Worker, svc models.Service) (*models.Service, error) {
	fe := forms.FieldErrors{}
	if _, err := forms.ValidateName(svc.Name); err != nil {
		fe.Add("name", err.Error())
	}
	if err := forms.ValidateServiceDuration(worker.TimeSlot, svc.DurationMinutes); err != nil {
		fe.Add("duration", err.Error())
	}
	if svc.Price < 0 {
		fe.Add("price", "must not be negative")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	svc.WorkerID = worker.ID
	if svc.ID != 0 {
		return api.UpdateService(ctx, svc)
	}
	return api.CreateService(ctx, svc)
}

// UpdateTimeSlot changes the worker's slot size once every service duration still fits.
func (s *DashboardService) UpdateTimeSlot(ctx context.Context, api DashboardAPI, workerID int64, timeSlot int) (*models.Worker, error) {
	services, err := api.ListServices(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if err := forms.ValidateTimeSlotAgainstServices(timeSlot, services); err != nil {
		return nil, forms.FieldErrors{"time_slot": {err.Error()}}
	}
	worker, err := api.GetWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	worker.TimeSlot = timeSlot
	return api.UpdateWorker(ctx, *worker)
}

func (s *DashboardService) AddOffDay(ctx context.Context, api DashboardAPI, workerID int64, req models.OffDayRequest) (*models.OffDay, error) {
	if err := forms.ValidateOffDay(req.StartDate, req.EndDate).Err(); err != nil {
		return nil, err
	}
	return api.CreateOffDay(ctx, workerID, req)
}

func (s *DashboardService) RemoveOffDay(ctx context.Context, api DashboardAPI, workerID, offDayID int64) error {
	return api.DeleteOffDay(ctx, workerID, offDayID)
}

// CreateAppointment books a grid slot on behalf of a customer. Unless the whole appointment
// span fits the day, it is refused without calling the API.
func (s *DashboardService) CreateAppointment(ctx context.Context, api DashboardAPI, req models.CreateAppointmentRequest, now time.Time) (*models.Appointment, error) {
	fe := forms.FieldErrors{}
	if _, err := forms.ValidateName(req.CustomerName); err != nil {
		fe.Add("customer_name", err.Error())
	}
	if _, err := forms.ValidatePhone(req.CustomerPhone); err != nil {
		fe.Add("customer_phone", err.Error())
	}
	if _, err := forms.ValidateOptionalEmail(req.CustomerEmail); err != nil {
		fe.Add("customer_email", err.Error())
	}
	if req.ServiceID == nil {
		if _, err := forms.ValidateName(req.CustomServiceName); err != nil {
			fe.Add("custom_service_name", err.Error())
		}
		if req.CustomServiceDuration <= 0 {
			fe.Add("custom_service_duration", "duration must be positive")
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	view, err := s.WorkerDay(ctx, api, req.WorkerID, req.Date, now)
	if err != nil {
		return nil, err
	}
	switch {
	case view.OffDay != nil:
		return nil, ErrOffDaySlot
	case view.Closed:
		return nil, ErrClosedDay
	}
	row, ok := view.Row(req.StartTime)
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s is not on the grid", ErrClosedDay, req.StartTime)
	case row.Past:
		return nil, ErrPastSlot
	case row.Break:
		return nil, ErrBreakSlot
	case !row.Free():
		return nil, ErrSlotBusy
	}

	duration, err := s.appointmentDuration(ctx, api, req)
	if err != nil {
		return nil, err
	}
	switch view.Fit(req.StartTime, duration) {
	case slots.FitBusy:
		return nil, ErrSlotBusy
	case slots.FitBreak:
		return nil, ErrBreakSlot
	case slots.FitAfterHours:
		return nil, ErrAfterHours
	}

	req.CustomerName, _ = forms.ValidateName(req.CustomerName)
	req.CustomerPhone, _ = forms.ValidatePhone(req.CustomerPhone)
	req.CustomerEmail, _ = forms.ValidateOptionalEmail(req.CustomerEmail)
	return api.CreateWorkerAppointment(ctx, req)
}

func (s *DashboardService) appointmentDuration(ctx context.Context, api DashboardAPI, req models.CreateAppointmentRequest) (int, error) {
	if req.ServiceID == nil {
		return req.CustomServiceDuration, nil
	}
	services, err := api.ListServices(ctx, req.WorkerID)
	if err != nil {
		return 0, fmt.Errorf("list services: %w", err)
	}
	for _, svc := range services {
		if svc.ID == *req.ServiceID {
			return svc.DurationMinutes, nil
		}
	}
	fe := forms.FieldErrors{}
	fe.Add("service_id", "service is not offered by this worker")
	return 0, fe.Err()
}

// WeekAppointments lists seven days of appointments starting at from.
func (s *DashboardService) WeekAppointments(ctx context.Context, api DashboardAPI, workerID int64, from time.Time) ([]models.DayAppointments, error) {
	return s.RangeAppointments(ctx, api, workerID, from, 7)
}

func (s *DashboardService) RangeAppointments(ctx context.Context, api DashboardAPI, workerID int64, from time.Time, days int) ([]models.DayAppointments, error) {
	out := make([]models.DayAppointments, days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(models.DateLayout)
		out[i].Date = date
		g.Go(func() error {
			appts, err := api.WorkerAppointments(gctx, workerID, date)
			if err != nil {
				return fmt.Errorf("appointments %s: %w", date, err)
			}
			out[i].Appointments = appts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
