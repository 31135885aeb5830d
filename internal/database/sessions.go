package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"
)

// LoadSession returns nil without error when the user has no session.
func (db *DB) LoadSession(ctx context.Context, telegramID int64) (*models.Session, error) {
	var (
		s        models.Session
		userJSON string
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT telegram_id, token, user_json, created_at, updated_at FROM sessions WHERE telegram_id = ?`,
		telegramID,
	).Scan(&s.TelegramID, &s.Token, &userJSON, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}
	return &s, nil
}

// SaveSession inserts or replaces the session, keeping the original created_at.
func (db *DB) SaveSession(ctx context.Context, s *models.Session) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}

	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}

	_, err = db.db.ExecContext(ctx, `
        INSERT INTO sessions (telegram_id, token, user_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(telegram_id) DO UPDATE SET
            token = excluded.token,
            user_json = excluded.user_json,
            created_at = CASE WHEN sessions.token = excluded.token THEN sessions.created_at ELSE excluded.created_at END,
            updated_at = excluded.updated_at`,
		s.TelegramID, s.Token, string(userJSON), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (db *DB) DeleteSession(ctx context.Context, telegramID int64) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM sessions WHERE telegram_id = ?`, telegramID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CountSessions is reported on the readiness endpoint.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
