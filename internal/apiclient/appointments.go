package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"salonbook/internal/cache"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

func (c *Client) WorkerAppointments(ctx context.Context, workerID int64, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	cl := call{
		route: "GET /worker/:id/appointments",
		path:  fmt.Sprintf("/worker/%d/appointments", workerID),
		query: url.Values{"date": {date}},
		out:   &appts,
	}
	if err := c.get(ctx, cl, cache.AppointmentsKey(workerID, date)); err != nil {
		return nil, err
	}
	return appts, nil
}

// CreateWorkerAppointment is the owner-side creation from a free grid slot.
func (c *Client) CreateWorkerAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	var appt models.Appointment
	cl := call{method: http.MethodPost, route: "POST /worker/appointments/create", path: "/worker/appointments/create", body: req, out: &appt}
	payload := events.ChangeEventPayload{WorkerID: req.WorkerID, Date: req.Date}
	if req.ServiceID != nil {
		payload.ServiceID = *req.ServiceID
	}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	payload.EntityID = appt.ID
	c.MarkStale(ctx, events.EventAppointmentCreated, payload)
	return &appt, nil
}

func (c *Client) AvailableSlots(ctx context.Context, workerID, serviceID int64, date string) (*models.AvailableSlots, error) {
	var slots models.AvailableSlots
	cl := call{
		route: "GET /appointments/available",
		path:  "/appointments/available",
		query: url.Values{
			"worker_id":  {strconv.FormatInt(workerID, 10)},
			"service_id": {strconv.FormatInt(serviceID, 10)},
			"date":       {date},
		},
		out: &slots,
	}
	if err := c.get(ctx, cl, cache.AvailableKey(workerID, date, serviceID)); err != nil {
		return nil, err
	}
	if slots.Date == "" {
		slots.Date = date
	}
	return &slots, nil
}

// BookAppointment is the public booking. A 409 means the slot was taken meanwhile.
func (c *Client) BookAppointment(ctx context.Context, req models.BookingRequest) (*models.Appointment, error) {
	var appt models.Appointment
	cl := call{method: http.MethodPost, route: "POST /appointments/book", path: "/appointments/book", body: req, out: &appt}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	c.MarkStale(ctx, events.EventAppointmentBooked, events.ChangeEventPayload{
		WorkerID:  req.WorkerID,
		Date:      req.Date,
		ServiceID: req.ServiceID,
		EntityID:  appt.ID,
	})
	return &appt, nil
}
