package models

import "time"

type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	SalonID int64  `json:"salon_id,omitempty"`
}

// Session is the locally stored authentication of one Telegram user.
type Session struct {
	TelegramID int64     `json:"telegram_id"`
	Token      string    `json:"token"`
	User       User      `json:"user"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
