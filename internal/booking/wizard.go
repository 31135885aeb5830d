// Package booking is the public multi-step booking wizard.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/apiclient"
	"salonbook/internal/events"
	"salonbook/internal/forms"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/slots"
)

type Step string

const (
	StepWorker  Step = "worker"
	StepService Step = "service"
	StepDate    Step = "date"
	StepTime    Step = "time"
	StepName    Step = "name"
	StepPhone   Step = "phone"
	StepEmail   Step = "email"
	StepConfirm Step = "confirm"
	StepDone    Step = "done"
)

var (
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrSlotTaken         = errors.New("selected time is no longer available")
	ErrNotReady          = errors.New("booking is not complete")
)

// order is the forward path; going back to any earlier step is allowed until done.
var order = []Step{StepWorker, StepService, StepDate, StepTime, StepName, StepPhone, StepEmail, StepConfirm, StepDone}

// fieldSteps maps API field names to the step that edits them.
var fieldSteps = map[string]Step{
	"worker_id":      StepWorker,
	"service_id":     StepService,
	"date":           StepDate,
	"start_time":     StepTime,
	"customer_name":  StepName,
	"customer_phone": StepPhone,
	"customer_email": StepEmail,
}

func index(s Step) int {
	for i, st := range order {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether the wizard may move from one step to another.
func CanTransition(from, to Step) bool {
	fi, ti := index(from), index(to)
	if fi < 0 || ti < 0 || from == StepDone {
		return false
	}
	return ti == fi+1 || ti < fi
}

// Backend is the slice of the API the wizard needs.
type Backend interface {
	AvailableSlots(ctx context.Context, workerID, serviceID int64, date string) (*models.AvailableSlots, error)
	BookAppointment(ctx context.Context, req models.BookingRequest) (*models.Appointment, error)
	MarkStale(ctx context.Context, eventType string, payload events.ChangeEventPayload)
}

// Wizard is the serializable booking draft of one chat.
type Wizard struct {
	Step              Step                `json:"step"`
	SalonID           int64               `json:"salon_id,omitempty"`
	WorkerID          int64               `json:"worker_id,omitempty"`
	WorkerName        string              `json:"worker_name,omitempty"`
	BookingWindowDays int                 `json:"booking_window,omitempty"`
	ServiceID         int64               `json:"service_id,omitempty"`
	ServiceName       string              `json:"service_name,omitempty"`
	ServiceDuration   int                 `json:"service_duration,omitempty"`
	Date              string              `json:"date,omitempty"`
	SelectedTime      string              `json:"selected_time,omitempty"`
	AvailableSlots    []string            `json:"available_slots,omitempty"`
	CustomerName      string              `json:"customer_name,omitempty"`
	CustomerPhone     string              `json:"customer_phone,omitempty"`
	CustomerEmail     string              `json:"customer_email,omitempty"`
	Errors            forms.FieldErrors   `json:"errors,omitempty"`
	Appointment       *models.Appointment `json:"appointment,omitempty"`
}

func New(salonID int64) *Wizard {
	return &Wizard{Step: StepWorker, SalonID: salonID, Errors: forms.FieldErrors{}}
}

func Decode(raw json.RawMessage) (*Wizard, error) {
	var w Wizard
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode booking wizard: %w", err)
	}
	if index(w.Step) < 0 {
		return nil, fmt.Errorf("decode booking wizard: unknown step %q", w.Step)
	}
	if w.Errors == nil {
		w.Errors = forms.FieldErrors{}
	}
	return &w, nil
}

func (w *Wizard) Encode() (json.RawMessage, error) {
	return json.Marshal(w)
}

func (w *Wizard) goTo(to Step) error {
	if w.Step == to {
		return nil
	}
	if !CanTransition(w.Step, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Step, to)
	}
	w.Step = to
	return nil
}

// at checks the wizard is on step, or that step is an earlier one being revisited.
func (w *Wizard) at(step Step) error {
	if w.Step == step {
		return nil
	}
	return w.goTo(step)
}

func (w *Wizard) fieldError(field string, err error) error {
	delete(w.Errors, field)
	w.Errors.Add(field, err.Error())
	return err
}

func (w *Wizard) clearError(field string) {
	delete(w.Errors, field)
}

// Back moves to the previous step.
func (w *Wizard) Back() error {
	i := index(w.Step)
	if i <= 0 || w.Step == StepDone {
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, w.Step)
	}
	return w.goTo(order[i-1])
}

// GoTo jumps back to an earlier step to edit it.
func (w *Wizard) GoTo(step Step) error {
	if index(step) >= index(w.Step) {
		return fmt.Errorf("%w: %s is not before %s", ErrInvalidTransition, step, w.Step)
	}
	return w.goTo(step)
}

func (w *Wizard) SelectWorker(worker models.Worker) error {
	if err := w.at(StepWorker); err != nil {
		return err
	}
	if worker.ID != w.WorkerID {
		w.ServiceID, w.ServiceName, w.ServiceDuration = 0, "", 0
		w.resetTime()
	}
	w.WorkerID = worker.ID
	w.WorkerName = worker.Name
	w.BookingWindowDays = worker.BookingWindowDays
	w.clearError("worker_id")
	return w.goTo(StepService)
}

func (w *Wizard) SelectService(s models.Service) error {
	if err := w.at(StepService); err != nil {
		return err
	}
	if s.WorkerID != 0 && s.WorkerID != w.WorkerID {
		return w.fieldError("service_id", errors.New("service does not belong to the selected worker"))
	}
	if s.ID != w.ServiceID {
		w.resetTime()
	}
	w.ServiceID = s.ID
	w.ServiceName = s.Name
	w.ServiceDuration = s.DurationMinutes
	w.clearError("service_id")
	return w.goTo(StepDate)
}

func (w *Wizard) resetTime() {
	w.SelectedTime = ""
	w.AvailableSlots = nil
}

func (w *Wizard) window() int {
	if w.BookingWindowDays > 0 {
		return w.BookingWindowDays
	}
	return models.DefaultBookingWindowDays
}

func today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
}

// DateOptions lists bookable dates from today across the booking window, skipping known off-days.
func (w *Wizard) DateOptions(now time.Time, loc *time.Location, offDays []models.OffDay) []string {
	start := today(now, loc)
	dates := make([]string, 0, w.window())
	for i := 0; i < w.window(); i++ {
		d := start.AddDate(0, 0, i).Format(models.DateLayout)
		if _, off := slots.IsOffDay(d, offDays); off {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

func (w *Wizard) SelectDate(date string, now time.Time, loc *time.Location, offDays []models.OffDay) error {
	if err := w.at(StepDate); err != nil {
		return err
	}
	d, err := forms.ValidateDate(date)
	if err != nil {
		return w.fieldError("date", err)
	}

	first := today(now, loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, first.Location())
	if day.Before(first) {
		return w.fieldError("date", errors.New("date is in the past"))
	}
	if !day.Before(first.AddDate(0, 0, w.window())) {
		return w.fieldError("date", fmt.Errorf("bookings are open %d days ahead", w.window()))
	}
	if off, ok := slots.IsOffDay(date, offDays); ok {
		msg := "worker is off on this day"
		if off.Reason != "" {
			msg += ": " + off.Reason
		}
		return w.fieldError("date", errors.New(msg))
	}

	if date != w.Date {
		w.resetTime()
	}
	w.Date = date
	w.clearError("date")
	return w.goTo(StepTime)
}

// LoadSlots fetches the free start times of the selected date, dropping those already past.
func (w *Wizard) LoadSlots(ctx context.Context, api Backend, now time.Time, loc *time.Location) error {
	if w.WorkerID == 0 || w.ServiceID == 0 || w.Date == "" {
		return ErrNotReady
	}
	avail, err := api.AvailableSlots(ctx, w.WorkerID, w.ServiceID, w.Date)
	if err != nil {
		return err
	}
	free := make([]string, 0, len(avail.Slots))
	for _, s := range avail.Slots {
		if !slots.IsPastTimeSlot(w.Date, s, now, loc) {
			free = append(free, s)
		}
	}
	w.AvailableSlots = free
	return nil
}

func (w *Wizard) SelectTime(t string) error {
	if err := w.at(StepTime); err != nil {
		return err
	}
	for _, s := range w.AvailableSlots {
		if s == t {
			w.SelectedTime = t
			w.clearError("start_time")
			return w.goTo(StepName)
		}
	}
	return w.fieldError("start_time", errors.New("time is not available"))
}

func (w *Wizard) SetName(name string) error {
	if err := w.at(StepName); err != nil {
		return err
	}
	v, err := forms.ValidateName(name)
	if err != nil {
		return w.fieldError("customer_name", err)
	}
	w.CustomerName = v
	w.clearError("customer_name")
	return w.goTo(StepPhone)
}

func (w *Wizard) SetPhone(phone string) error {
	if err := w.at(StepPhone); err != nil {
		return err
	}
	v, err := forms.ValidatePhone(phone)
	if err != nil {
		return w.fieldError("customer_phone", err)
	}
	w.CustomerPhone = v
	w.clearError("customer_phone")
	return w.goTo(StepEmail)
}

// SetEmail accepts an empty value to skip the optional email.
func (w *Wizard) SetEmail(email string) error {
	if err := w.at(StepEmail); err != nil {
		return err
	}
	v, err := forms.ValidateOptionalEmail(email)
	if err != nil {
		return w.fieldError("customer_email", err)
	}
	w.CustomerEmail = v
	w.clearError("customer_email")
	return w.goTo(StepConfirm)
}

func (w *Wizard) Request() models.BookingRequest {
	return models.BookingRequest{
		WorkerID:      w.WorkerID,
		ServiceID:     w.ServiceID,
		Date:          w.Date,
		StartTime:     w.SelectedTime,
		CustomerName:  w.CustomerName,
		CustomerPhone: w.CustomerPhone,
		CustomerEmail: w.CustomerEmail,
	}
}

// Submit books the appointment. The server decides; the wizard only routes its answer:
// a conflict clears the time and refetches slots, validation errors send the user back
// to the earliest failing step, rate limiting keeps the wizard on confirm.
func (w *Wizard) Submit(ctx context.Context, api Backend, now time.Time, loc *time.Location) (*models.Appointment, error) {
	if w.Step != StepConfirm {
		return nil, fmt.Errorf("%w: on step %s", ErrNotReady, w.Step)
	}

	appt, err := api.BookAppointment(ctx, w.Request())
	switch {
	case err == nil:
		metrics.IncBooking("booked")
		w.Appointment = appt
		w.Errors = forms.FieldErrors{}
		return appt, w.goTo(StepDone)

	case errors.Is(err, apiclient.ErrConflict):
		metrics.IncBooking("conflict")
		taken := w.SelectedTime
		w.resetTime()
		w.Step = StepTime
		w.Errors.Add("start_time", fmt.Sprintf("%s was just booked by someone else", taken))
		api.MarkStale(ctx, events.EventBookingConflict, events.ChangeEventPayload{
			WorkerID: w.WorkerID, Date: w.Date, ServiceID: w.ServiceID,
		})
		if loadErr := w.LoadSlots(ctx, api, now, loc); loadErr != nil {
			return nil, fmt.Errorf("%w (refreshing times failed: %v)", ErrSlotTaken, loadErr)
		}
		return nil, ErrSlotTaken

	case errors.Is(err, apiclient.ErrValidation):
		metrics.IncBooking("invalid")
		w.Errors = forms.FieldErrors{}
		w.Errors.Merge(apiclient.FieldErrors(err))
		if step, ok := w.earliestFailingStep(); ok {
			w.Step = step
		}
		return nil, err

	case errors.Is(err, apiclient.ErrRateLimited):
		metrics.IncBooking("rate_limited")
		return nil, err

	default:
		metrics.IncBooking("error")
		return nil, err
	}
}

func (w *Wizard) earliestFailingStep() (Step, bool) {
	best := -1
	for _, field := range w.Errors.Fields() {
		step, ok := fieldSteps[field]
		if !ok {
			continue
		}
		if i := index(step); best < 0 || i < best {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return order[best], true
}
