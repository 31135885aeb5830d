package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"salonbook/internal/models"
	"salonbook/internal/navigation"
	"salonbook/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// routes a user can navigate to; the optional argument follows a space
const (
	RouteMenu      = "menu"
	RouteStart     = "start"
	RouteBook      = "book"
	RouteLogin     = "login"
	RouteRegister  = "register"
	RouteLogout    = "logout"
	RouteDashboard = "dashboard"
)

const deepLinkSalonPrefix = "salon_"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	l := zerolog.Ctx(ctx)

	l.Debug().
		Int64("user_id", userID).
		Str("username", msg.From.UserName).
		Bool("command", msg.IsCommand()).
		Msg("Handling message")

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.showMainMenu(ctx, screen{chatID: msg.Chat.ID}, userID)
		return
	}

	switch state.CurrentStep {
	case StateBooking:
		b.handleBookingInput(ctx, msg, state)
	case StateRegister:
		b.handleRegisterInput(ctx, msg, state)
	case StateLoginEmail, StateLoginPassword:
		b.handleLoginInput(ctx, msg, state)
	case StateAppointment:
		b.handleAppointmentInput(ctx, msg, state)
	case StateServiceInput, StateScheduleInput, StateOffDayInput, StateTimeSlotInput, StateWorkerInput, StateProfileInput:
		b.handleDashboardInput(ctx, msg, state)
	default:
		b.showMainMenu(ctx, screen{chatID: msg.Chat.ID}, userID)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.navigate(ctx, chatID, userID, strings.TrimSpace(RouteStart+" "+args))
	case "menu":
		b.navigate(ctx, chatID, userID, RouteMenu)
	case "book":
		b.navigate(ctx, chatID, userID, RouteBook)
	case "login":
		b.navigate(ctx, chatID, userID, RouteLogin)
	case "register":
		b.navigate(ctx, chatID, userID, RouteRegister)
	case "logout":
		b.navigate(ctx, chatID, userID, RouteLogout)
	case "dashboard":
		b.navigate(ctx, chatID, userID, RouteDashboard)
	case "cancel":
		b.cancelDialog(ctx, screen{chatID: chatID}, userID)
	default:
		b.sendMessage(chatID, "Unknown command. Use /menu to see what I can do.")
	}
}

// navigate moves to route unless the current screen holds unsaved input, in which case
// the user is asked to confirm leaving it.
func (b *Bot) navigate(ctx context.Context, chatID, userID int64, route string) {
	if decision, reason := b.guard.Attempt(userID, route); decision == navigation.Confirm {
		b.confirmLeave(screen{chatID: chatID}, reason)
		return
	}
	b.goTo(ctx, screen{chatID: chatID}, userID, route)
}

func (b *Bot) confirmLeave(sc screen, reason string) {
	b.show(sc,
		fmt.Sprintf("✋ You have an unfinished %s. Leave it and lose the entered data?", escape(reason)),
		markup(btnRow(btn("🚪 Leave", "nav:leave"), btn("↩️ Stay", "nav:stay"))))
}

func (b *Bot) resolveNavigation(ctx context.Context, sc screen, userID int64, leave bool) {
	target, ok := b.guard.Resolve(userID, leave)
	if !leave {
		b.show(sc, "👍 Carry on where you left off.", nil)
		b.resumeDialog(ctx, screen{chatID: sc.chatID}, userID)
		return
	}
	if !ok {
		b.showMainMenu(ctx, sc, userID)
		return
	}
	b.resetDialog(ctx, userID)
	b.goTo(ctx, sc, userID, target)
}

func (b *Bot) goTo(ctx context.Context, sc screen, userID int64, route string) {
	name, arg, _ := strings.Cut(route, " ")
	switch name {
	case RouteStart:
		b.handleStart(ctx, sc, userID, arg)
	case RouteBook:
		b.startBooking(ctx, sc, userID, b.salonOf(b.getUserState(ctx, userID)))
	case RouteLogin:
		b.startLogin(ctx, sc, userID)
	case RouteRegister:
		b.startRegister(ctx, sc, userID)
	case RouteLogout:
		b.logout(ctx, sc, userID)
	case RouteDashboard:
		b.showDashboard(ctx, sc, userID)
	default:
		b.showMainMenu(ctx, sc, userID)
	}
}

// resetDialog drops any wizard draft but remembers the salon the user came from.
func (b *Bot) resetDialog(ctx context.Context, userID int64) {
	salonID := b.salonOf(b.getUserState(ctx, userID))
	b.guard.Unlock(userID)
	if salonID != 0 {
		b.setUserState(ctx, userID, "", map[string]interface{}{"salon_id": salonID})
		return
	}
	b.clearUserState(ctx, userID)
}

func (b *Bot) cancelDialog(ctx context.Context, sc screen, userID int64) {
	b.resetDialog(ctx, userID)
	b.show(sc, "✖️ Cancelled.", nil)
	b.showMainMenu(ctx, screen{chatID: sc.chatID}, userID)
}

// resumeDialog re-renders the step the user is on.
func (b *Bot) resumeDialog(ctx context.Context, sc screen, userID int64) {
	state := b.getUserState(ctx, userID)
	if state == nil {
		b.showMainMenu(ctx, sc, userID)
		return
	}
	switch state.CurrentStep {
	case StateBooking:
		b.resumeBooking(ctx, sc, userID, state)
	case StateRegister:
		b.resumeRegister(ctx, sc, userID, state)
	case StateAppointment:
		b.promptAppointment(ctx, sc, userID, state)
	default:
		b.showMainMenu(ctx, sc, userID)
	}
}

func (b *Bot) handleStart(ctx context.Context, sc screen, userID int64, payload string) {
	salonID := b.config.Bot.DefaultSalonID
	if strings.HasPrefix(payload, deepLinkSalonPrefix) {
		if id, err := strconv.ParseInt(strings.TrimPrefix(payload, deepLinkSalonPrefix), 10, 64); err == nil && id > 0 {
			salonID = id
		}
	}

	b.guard.Unlock(userID)
	if salonID != 0 {
		b.setUserState(ctx, userID, "", map[string]interface{}{"salon_id": salonID})
		b.showSalon(ctx, sc, userID, salonID)
		return
	}
	b.clearUserState(ctx, userID)
	b.showMainMenu(ctx, sc, userID)
}

// showMainMenu offers booking for the current salon and the owner entry points.
func (b *Bot) showMainMenu(ctx context.Context, sc screen, userID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	if b.salonOf(b.getUserState(ctx, userID)) != 0 {
		rows = append(rows, btnRow(btn("📅 Book an appointment", "route:"+RouteBook)))
	}

	var text strings.Builder
	text.WriteString("👋 <b>Welcome!</b>\n\n")

	_, sess, err := b.sessions.Client(ctx, userID)
	switch {
	case err == nil:
		text.WriteString(fmt.Sprintf("You are signed in as <b>%s</b>.", escape(sess.User.Name)))
		rows = append(rows,
			btnRow(btn("📊 Dashboard", "route:"+RouteDashboard)),
			btnRow(btn("🚪 Log out", "route:"+RouteLogout)))
	case errors.Is(err, session.ErrNotLoggedIn):
		text.WriteString("Book an appointment, or sign in to manage your salon.")
		rows = append(rows, btnRow(btn("🔑 Log in", "route:"+RouteLogin), btn("📝 Register", "route:"+RouteRegister)))
	default:
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to load session")
		text.WriteString("Book an appointment.")
	}

	b.show(sc, text.String(), markup(rows...))
}

// showSalon is the public salon page.
func (b *Bot) showSalon(ctx context.Context, sc screen, userID, salonID int64) {
	salon, err := b.sessions.Public().GetSalon(ctx, salonID)
	if err != nil {
		b.presentError(ctx, sc.chatID, userID, err)
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("💈 <b>%s</b>\n", escape(salon.Name)))
	if salon.Address != "" {
		text.WriteString(fmt.Sprintf("📍 %s\n", escape(salon.Address)))
	}
	if salon.Phone != "" {
		text.WriteString(fmt.Sprintf("📞 %s\n", escape(salon.Phone)))
	}
	if len(salon.Workers) > 0 {
		text.WriteString("\n<b>Our team</b>\n")
		for _, w := range salon.Workers {
			text.WriteString(fmt.Sprintf("• %s\n", escape(w.Name)))
		}
	}

	b.show(sc, text.String(), markup(
		btnRow(btn("📅 Book an appointment", "route:"+RouteBook)),
		btnRow(btn("🔑 Owner login", "route:"+RouteLogin)),
	))
}

func (b *Bot) logout(ctx context.Context, sc screen, userID int64) {
	if err := b.sessions.Teardown(ctx, userID); err != nil {
		b.presentError(ctx, sc.chatID, userID, err)
		return
	}
	b.resetDialog(ctx, userID)
	b.show(sc, "👋 You are logged out.", markup(btnRow(btn("🔑 Log in", "route:"+RouteLogin))))
}

// formatSession is the one-line identity shown on dashboard screens.
func formatSession(s *models.Session) string {
	if s == nil {
		return ""
	}
	if s.User.Email != "" {
		return fmt.Sprintf("%s (%s)", escape(s.User.Name), escape(s.User.Email))
	}
	return escape(s.User.Name)
}
