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

func workerQuery(workerID int64) url.Values {
	return url.Values{"worker_id": {strconv.FormatInt(workerID, 10)}}
}

func (c *Client) ListWorkSchedules(ctx context.Context, workerID int64) ([]models.WorkSchedule, error) {
	var schedules []models.WorkSchedule
	cl := call{route: "GET /work-schedules", path: "/work-schedules", query: workerQuery(workerID), out: &schedules}
	if err := c.get(ctx, cl, cache.SchedulesKey(workerID)); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *Client) CreateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error) {
	saved := s
	cl := call{method: http.MethodPost, route: "POST /work-schedules", path: "/work-schedules", body: s, out: &saved}
	if err := c.mutate(ctx, cl, events.EventScheduleSaved, events.ChangeEventPayload{WorkerID: s.WorkerID}); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) UpdateWorkSchedule(ctx context.Context, s models.WorkSchedule) (*models.WorkSchedule, error) {
	saved := s
	cl := call{method: http.MethodPut, route: "PUT /work-schedules/:id", path: fmt.Sprintf("/work-schedules/%d", s.ID), body: s, out: &saved}
	err := c.mutate(ctx, cl, events.EventScheduleSaved, events.ChangeEventPayload{WorkerID: s.WorkerID, EntityID: s.ID})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
