package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"salonbook/internal/cache"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

func (c *Client) ListOffDays(ctx context.Context, workerID int64) ([]models.OffDay, error) {
	var offDays []models.OffDay
	cl := call{route: "GET /workers/:id/off-days", path: fmt.Sprintf("/workers/%d/off-days", workerID), out: &offDays}
	if err := c.get(ctx, cl, cache.OffDaysKey(workerID)); err != nil {
		return nil, err
	}
	return offDays, nil
}

func (c *Client) CreateOffDay(ctx context.Context, workerID int64, req models.OffDayRequest) (*models.OffDay, error) {
	off := models.OffDay{WorkerID: workerID, StartDate: req.StartDate, EndDate: req.EndDate, Reason: req.Reason}
	cl := call{method: http.MethodPost, route: "POST /workers/:id/off-days", path: fmt.Sprintf("/workers/%d/off-days", workerID), body: req, out: &off}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	c.MarkStale(ctx, events.EventOffDayCreated, events.ChangeEventPayload{WorkerID: workerID, EntityID: off.ID})
	return &off, nil
}

func (c *Client) DeleteOffDay(ctx context.Context, workerID, offDayID int64) error {
	cl := call{
		method: http.MethodDelete,
		route:  "DELETE /workers/:id/off-days/:offDayId",
		path:   fmt.Sprintf("/workers/%d/off-days/%d", workerID, offDayID),
	}
	return c.mutate(ctx, cl, events.EventOffDayDeleted, events.ChangeEventPayload{WorkerID: workerID, EntityID: offDayID})
}
