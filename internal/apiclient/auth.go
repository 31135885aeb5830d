package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"salonbook/internal/cache"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, route: "POST /login", path: "/login", body: req, out: &resp})
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login returned no token", ErrInvalidResponse)
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, route: "POST /register", path: "/register", body: req, out: &resp})
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: register returned no token", ErrInvalidResponse)
	}
	return &resp, nil
}

// CheckAuth verifies the token. The API answers either the user or {"user": ...}.
func (c *Client) CheckAuth(ctx context.Context) (*models.User, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{method: http.MethodGet, route: "GET /check-auth", path: "/check-auth", out: &raw})
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	var raw json.RawMessage
	if err := c.get(ctx, call{route: "GET /user", path: "/user", out: &raw}, cache.UserKey()); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (c *Client) UpdateUser(ctx context.Context, user models.User) (*models.User, error) {
	var raw json.RawMessage
	err := c.mutate(ctx,
		call{method: http.MethodPost, route: "POST /user", path: "/user", body: user, out: &raw},
		events.EventUserUpdated, events.ChangeEventPayload{UserID: user.ID, SalonID: user.SalonID})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &user, nil
	}
	return decodeUser(raw)
}

func decodeUser(raw json.RawMessage) (*models.User, error) {
	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: user: %w", ErrInvalidResponse, err)
	}
	return &u, nil
}
