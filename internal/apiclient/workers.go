package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"salonbook/internal/cache"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

func (c *Client) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := c.get(ctx, call{route: "GET /workers", path: "/workers", out: &workers}, cache.WorkersKey()); err != nil {
		return nil, err
	}
	return workers, nil
}

func (c *Client) GetWorker(ctx context.Context, workerID int64) (*models.Worker, error) {
	var w models.Worker
	cl := call{route: "GET /workers/:id", path: fmt.Sprintf("/workers/%d", workerID), out: &w}
	if err := c.get(ctx, cl, cache.WorkerKey(workerID)); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) CreateWorker(ctx context.Context, w models.Worker) (*models.Worker, error) {
	var created models.Worker
	cl := call{method: http.MethodPost, route: "POST /workers", path: "/workers", body: w, out: &created}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	c.MarkStale(ctx, events.EventWorkerCreated, events.ChangeEventPayload{WorkerID: created.ID, SalonID: w.SalonID, EntityID: created.ID})
	return &created, nil
}

func (c *Client) UpdateWorker(ctx context.Context, w models.Worker) (*models.Worker, error) {
	updated := w
	cl := call{method: http.MethodPut, route: "PUT /workers/:id", path: fmt.Sprintf("/workers/%d", w.ID), body: w, out: &updated}
	err := c.mutate(ctx, cl, events.EventWorkerUpdated, events.ChangeEventPayload{WorkerID: w.ID, SalonID: w.SalonID, EntityID: w.ID})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteWorker(ctx context.Context, workerID int64) error {
	cl := call{method: http.MethodDelete, route: "DELETE /workers/:id", path: fmt.Sprintf("/workers/%d", workerID)}
	return c.mutate(ctx, cl, events.EventWorkerDeleted, events.ChangeEventPayload{WorkerID: workerID, EntityID: workerID})
}

func (c *Client) GetSalon(ctx context.Context, salonID int64) (*models.Salon, error) {
	var s models.Salon
	cl := call{route: "GET /salon/:salonId", path: fmt.Sprintf("/salon/%d", salonID), out: &s}
	if err := c.get(ctx, cl, cache.SalonKey(salonID)); err != nil {
		return nil, err
	}
	return &s, nil
}
