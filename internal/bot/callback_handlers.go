package bot

import (
	"context"
	"strings"

	"salonbook/internal/navigation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// callback data prefixes; arguments are separated by ':'
const (
	cbRoute     = "route"
	cbNav       = "nav"
	cbBooking   = "bk"
	cbRegister  = "rg"
	cbDashboard = "db"
	cbAppoint   = "ap"
	cbNoop      = "noop"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	// answer right away so the client stops the spinner
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Failed to answer callback")
	}

	if callback.Message == nil {
		return
	}
	sc := screen{chatID: callback.Message.Chat.ID, messageID: callback.Message.MessageID}

	parts := callbackArgs(callback.Data)
	zerolog.Ctx(ctx).Debug().Int64("user_id", userID).Str("data", callback.Data).Msg("Handling callback")

	switch parts[0] {
	case cbRoute:
		route := strings.Join(parts[1:], " ")
		if decision, reason := b.guard.Attempt(userID, route); decision == navigation.Confirm {
			b.confirmLeave(sc, reason)
			return
		}
		b.goTo(ctx, sc, userID, route)
	case cbNav:
		b.resolveNavigation(ctx, sc, userID, arg(parts, 1) == "leave")
	case cbBooking:
		b.handleBookingCallback(ctx, sc, userID, parts[1:])
	case cbRegister:
		b.handleRegisterCallback(ctx, sc, userID, parts[1:])
	case cbDashboard:
		b.handleDashboardCallback(ctx, sc, userID, parts[1:])
	case cbAppoint:
		b.handleAppointmentCallback(ctx, sc, userID, parts[1:])
	case cbNoop:
	default:
		zerolog.Ctx(ctx).Warn().Str("data", callback.Data).Msg("Unknown callback")
	}
}
