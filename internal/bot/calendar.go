package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const datesPerRow = 3

// dateRows lays dates out as buttons prefix+<date>, labelled with the weekday.
func dateRows(dates []string, prefix string) [][]tgbotapi.InlineKeyboardButton {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(dates))
	for _, d := range dates {
		buttons = append(buttons, btn(shortDate(d), prefix+d))
	}
	return chunk(buttons, datesPerRow)
}

// dayNavRow moves a day view one day back or forward; cb formats the callback of a date.
func dayNavRow(date, today string, cb func(date string) string) []tgbotapi.InlineKeyboardButton {
	row := btnRow(btn("◀️ "+shortDate(shiftDate(date, -1)), cb(shiftDate(date, -1))))
	if date != today {
		row = append(row, btn("📍 Today", cb(today)))
	}
	return append(row, btn(shortDate(shiftDate(date, 1))+" ▶️", cb(shiftDate(date, 1))))
}

// weekNavRow jumps a week at a time.
func weekNavRow(date string, cb func(date string) string) []tgbotapi.InlineKeyboardButton {
	return btnRow(
		btn("⏪ Week", cb(shiftDate(date, -7))),
		btn("Week ⏩", cb(shiftDate(date, 7))),
	)
}
