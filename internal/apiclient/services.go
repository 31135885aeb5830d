package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"salonbook/internal/cache"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

func (c *Client) ListServices(ctx context.Context, workerID int64) ([]models.Service, error) {
	var services []models.Service
	cl := call{route: "GET /services", path: "/services", query: workerQuery(workerID), out: &services}
	if err := c.get(ctx, cl, cache.ServicesKey(workerID)); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *Client) CreateService(ctx context.Context, s models.Service) (*models.Service, error) {
	saved := s
	cl := call{method: http.MethodPost, route: "POST /services", path: "/services", body: s, out: &saved}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	c.MarkStale(ctx, events.EventServiceSaved, events.ChangeEventPayload{WorkerID: s.WorkerID, ServiceID: saved.ID, EntityID: saved.ID})
	return &saved, nil
}

func (c *Client) UpdateService(ctx context.Context, s models.Service) (*models.Service, error) {
	saved := s
	cl := call{method: http.MethodPut, route: "PUT /services/:id", path: fmt.Sprintf("/services/%d", s.ID), body: s, out: &saved}
	err := c.mutate(ctx, cl, events.EventServiceSaved, events.ChangeEventPayload{WorkerID: s.WorkerID, ServiceID: s.ID, EntityID: s.ID})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) DeleteService(ctx context.Context, workerID, serviceID int64) error {
	cl := call{method: http.MethodDelete, route: "DELETE /services/:id", path: fmt.Sprintf("/services/%d", serviceID)}
	return c.mutate(ctx, cl, events.EventServiceDeleted, events.ChangeEventPayload{WorkerID: workerID, ServiceID: serviceID, EntityID: serviceID})
}
