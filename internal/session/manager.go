// Package session owns the per-Telegram-user API token.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"salonbook/internal/apiclient"
	"salonbook/internal/cache"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrNotLoggedIn)
)

type Manager struct {
	store  domain.SessionStore
	api    *apiclient.Client
	cache  cache.Store
	events domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewManager(store domain.SessionStore, api *apiclient.Client, c cache.Store, pub domain.EventPublisher, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{store: store, api: api, cache: c, events: pub, logger: logger, now: time.Now}
}

// Public is the anonymous client used by the booking wizard.
func (m *Manager) Public() *apiclient.Client {
	return m.api
}

// Init restores a stored session and verifies the token against the API.
// A rejected token tears the session down and yields ErrSessionExpired.
func (m *Manager) Init(ctx context.Context, userID int64) (*models.Session, error) {
	s, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil || s.Token == "" {
		return nil, ErrNotLoggedIn
	}

	user, err := m.api.WithToken(s.Token).CheckAuth(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			if tErr := m.teardown(ctx, s); tErr != nil {
				m.logger.Error().Err(tErr).Int64("user_id", userID).Msg("Failed to tear down expired session")
			}
			return nil, ErrSessionExpired
		}
		return s, err
	}

	s.User = *user
	s.UpdatedAt = m.now()
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func (m *Manager) Login(ctx context.Context, userID int64, req models.LoginRequest) (*models.Session, error) {
	resp, err := m.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.start(ctx, userID, resp)
}

func (m *Manager) Register(ctx context.Context, userID int64, req models.RegisterRequest) (*models.Session, error) {
	resp, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.start(ctx, userID, resp)
}

func (m *Manager) start(ctx context.Context, userID int64, resp *models.AuthResponse) (*models.Session, error) {
	if prev, err := m.store.LoadSession(ctx, userID); err == nil && prev != nil && prev.Token != resp.Token {
		m.dropScope(ctx, prev.Token)
	}

	now := m.now()
	s := &models.Session{TelegramID: userID, Token: resp.Token, User: resp.User, CreatedAt: now, UpdatedAt: now}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.publish(events.EventSessionStarted, s)
	m.logger.Info().Int64("user_id", userID).Int64("api_user_id", s.User.ID).Msg("Session started")
	return s, nil
}

// Teardown forgets the token and drops everything cached under it.
func (m *Manager) Teardown(ctx context.Context, userID int64) error {
	s, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil
	}
	return m.teardown(ctx, s)
}

func (m *Manager) teardown(ctx context.Context, s *models.Session) error {
	if err := m.store.DeleteSession(ctx, s.TelegramID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.dropScope(ctx, s.Token)
	m.publish(events.EventSessionEnded, s)
	m.logger.Info().Int64("user_id", s.TelegramID).Msg("Session ended")
	return nil
}

func (m *Manager) dropScope(ctx context.Context, token string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.DropScope(ctx, cache.Scope(token)); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to drop session cache")
	}
}

func (m *Manager) publish(eventType string, s *models.Session) {
	if m.events == nil {
		return
	}
	payload := events.ChangeEventPayload{UserID: s.TelegramID, SalonID: s.User.SalonID}
	if err := m.events.PublishJSON(eventType, payload); err != nil {
		m.logger.Error().Err(err).Str("event", eventType).Int64("user_id", s.TelegramID).Msg("Failed to publish event")
	}
}

// Client returns the authenticated client of a user without contacting the API.
func (m *Manager) Client(ctx context.Context, userID int64) (*apiclient.Client, *models.Session, error) {
	s, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil || s.Token == "" {
		return nil, nil, ErrNotLoggedIn
	}
	return m.api.WithToken(s.Token), s, nil
}

// HandleError tears the session down when err is an authorization failure and reports whether it did.
func (m *Manager) HandleError(ctx context.Context, userID int64, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	if tErr := m.Teardown(ctx, userID); tErr != nil {
		m.logger.Error().Err(tErr).Int64("user_id", userID).Msg("Failed to tear down expired session")
	}
	return true
}
