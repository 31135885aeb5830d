package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// screen is where a reply goes: an edit of the pressed message or a new message.
type screen struct {
	chatID    int64
	messageID int
}

func (b *Bot) show(sc screen, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if sc.messageID != 0 {
		_, err := b.tgService.EditScreen(sc.chatID, sc.messageID, text, keyboard)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}
	if _, err := b.tgService.SendScreen(sc.chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", sc.chatID).Msg("Failed to send screen")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

// deleteMessage removes a message that carried a secret, such as a typed password.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.tgService.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to delete message")
	}
}

func (b *Bot) setUserState(ctx context.Context, userID int64, step string, tempData map[string]interface{}) {
	if err := b.stateService.SetUserState(ctx, userID, step, tempData); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Str("step", step).Msg("Failed to set user state")
	}
}

func (b *Bot) getUserState(ctx context.Context, userID int64) *models.UserState {
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		return nil
	}
	return state
}

func (b *Bot) clearUserState(ctx context.Context, userID int64) {
	if err := b.stateService.ClearUserState(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to clear user state")
	}
}

// salonOf is the salon the user arrived at, falling back to the configured one.
func (b *Bot) salonOf(state *models.UserState) int64 {
	if state != nil {
		if id := state.GetInt64("salon_id"); id != 0 {
			return id
		}
	}
	return b.config.Bot.DefaultSalonID
}

func (b *Bot) today() string {
	return b.now().In(b.loc).Format(models.DateLayout)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func btn(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func btnRow(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

func markup(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

// chunk lays buttons out perRow per keyboard row.
func chunk(buttons []tgbotapi.InlineKeyboardButton, perRow int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for len(buttons) > 0 {
		n := perRow
		if n > len(buttons) {
			n = len(buttons)
		}
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	return rows
}

// packClock and unpackClock keep ':' out of callback data, which uses it as separator.
func packClock(clock string) string {
	return strings.Replace(clock, ":", "", 1)
}

func unpackClock(packed string) string {
	if len(packed) != 4 {
		return packed
	}
	return packed[:2] + ":" + packed[2:]
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func callbackArgs(data string) []string {
	return strings.Split(data, ":")
}

// arg returns the i-th callback argument or "".
func arg(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// parseDateInput accepts YYYY-MM-DD and DD.MM.YYYY.
func parseDateInput(s string) (string, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(models.DateLayout, s); err == nil {
		return d.Format(models.DateLayout), nil
	}
	if d, err := time.Parse(models.DisplayLayout, s); err == nil {
		return d.Format(models.DateLayout), nil
	}
	return "", fmt.Errorf("%q is not a date, use YYYY-MM-DD or DD.MM.YYYY", s)
}

func displayDate(date string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Mon 02.01.2006")
}

func shortDate(date string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Mon 02.01")
}

func shiftDate(date string, days int) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, days).Format(models.DateLayout)
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func weekdayName(day int) string {
	if day < 0 || day >= len(weekdayNames) {
		return fmt.Sprintf("Day %d", day)
	}
	return weekdayNames[day]
}

func weekdayShort(day int) string {
	return weekdayName(day)[:3]
}

// weekOrder lists weekdays Monday first.
var weekOrder = []int{1, 2, 3, 4, 5, 6, 0}
