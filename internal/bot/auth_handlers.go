package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salonbook/internal/apiclient"
	"salonbook/internal/forms"
	"salonbook/internal/models"
	"salonbook/internal/registration"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const lockRegistration = "registration"

func (b *Bot) startLogin(ctx context.Context, sc screen, userID int64) {
	if _, sess, err := b.sessions.Client(ctx, userID); err == nil {
		b.show(sc, fmt.Sprintf("You are already signed in as %s.", formatSession(sess)),
			markup(btnRow(btn("📊 Dashboard", "route:"+RouteDashboard), btn("🚪 Log out", "route:"+RouteLogout))))
		return
	}

	b.setUserState(ctx, userID, StateLoginEmail, b.keepSalon(ctx, userID, nil))
	b.show(sc, "🔑 <b>Log in</b>\n\nType your <b>email</b>.", markup(btnRow(btn("✖️ Cancel", "route:"+RouteMenu))))
}

// keepSalon carries the salon the user came from into fresh dialog data.
func (b *Bot) keepSalon(ctx context.Context, userID int64, data map[string]interface{}) map[string]interface{} {
	if data == nil {
		data = make(map[string]interface{})
	}
	if salonID := b.salonOf(b.getUserState(ctx, userID)); salonID != 0 {
		data["salon_id"] = salonID
	}
	return data
}

func (b *Bot) handleLoginInput(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	sc := screen{chatID: chatID}
	cancel := markup(btnRow(btn("✖️ Cancel", "route:"+RouteMenu)))

	if state.CurrentStep == StateLoginEmail {
		email, err := forms.ValidateEmail(msg.Text)
		if err != nil {
			b.show(sc, stepPrompt("Type your <b>email</b>.", err.Error()), cancel)
			return
		}
		b.setUserState(ctx, userID, StateLoginPassword, b.keepSalon(ctx, userID, map[string]interface{}{"email": email}))
		b.show(sc, "Now type your <b>password</b>. The message is deleted right after reading.", cancel)
		return
	}

	password := msg.Text
	b.deleteMessage(chatID, msg.MessageID)

	sess, err := b.sessions.Login(ctx, userID, models.LoginRequest{Email: state.GetString("email"), Password: password})
	switch {
	case err == nil:
		b.setUserState(ctx, userID, "", b.keepSalon(ctx, userID, nil))
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("Owner logged in")
		b.show(sc, fmt.Sprintf("✅ Welcome back, <b>%s</b>!", escape(sess.User.Name)), nil)
		b.showDashboard(ctx, screen{chatID: chatID}, userID)
	case errors.Is(err, apiclient.ErrUnauthorized):
		// on login 401 means wrong credentials, there is no session to end
		b.setUserState(ctx, userID, StateLoginEmail, b.keepSalon(ctx, userID, nil))
		b.show(sc, "❌ Wrong email or password.\n\nType your <b>email</b> to try again.", cancel)
	case errors.Is(err, apiclient.ErrValidation):
		b.setUserState(ctx, userID, StateLoginEmail, b.keepSalon(ctx, userID, nil))
		b.show(sc, b.getErrorMessage(err)+"\n\nType your <b>email</b> to try again.", cancel)
	default:
		b.presentError(ctx, chatID, userID, err)
	}
}

func (b *Bot) startRegister(ctx context.Context, sc screen, userID int64) {
	if _, sess, err := b.sessions.Client(ctx, userID); err == nil {
		b.show(sc, fmt.Sprintf("You are already signed in as %s.", formatSession(sess)),
			markup(btnRow(btn("📊 Dashboard", "route:"+RouteDashboard))))
		return
	}

	w := registration.New()
	b.saveRegistration(ctx, userID, w)
	b.guard.Lock(userID, lockRegistration)
	b.renderRegister(sc, w, "")
}

func (b *Bot) saveRegistration(ctx context.Context, userID int64, w *registration.Wizard) {
	if err := b.stateService.SaveWizard(ctx, userID, StateRegister, w); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to save registration")
	}
}

func (b *Bot) loadRegistration(state *models.UserState) (*registration.Wizard, error) {
	if state == nil || state.CurrentStep != StateRegister || len(state.Wizard) == 0 {
		return nil, errors.New("no registration in progress")
	}
	return registration.Decode(state.Wizard)
}

func (b *Bot) resumeRegister(ctx context.Context, sc screen, userID int64, state *models.UserState) {
	w, err := b.loadRegistration(state)
	if err != nil {
		b.startRegister(ctx, sc, userID)
		return
	}
	b.renderRegister(sc, w, "")
}

func (b *Bot) handleRegisterInput(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	sc := screen{chatID: chatID}

	w, err := b.loadRegistration(state)
	if err != nil {
		b.resetDialog(ctx, userID)
		b.showMainMenu(ctx, sc, userID)
		return
	}

	text := msg.Text
	switch w.Step {
	case registration.StepPassword, registration.StepConfirmation:
		b.deleteMessage(chatID, msg.MessageID)
	case registration.StepPhone:
		if msg.Contact != nil {
			text = msg.Contact.PhoneNumber
		}
	case registration.StepConfirm, registration.StepDone:
		b.renderRegister(sc, w, "👆 Please use the buttons.")
		return
	}

	if err := w.Input(text); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("step", string(w.Step)).Msg("Registration input rejected")
	}
	b.saveRegistration(ctx, userID, w)
	b.renderRegister(sc, w, "")
}

func (b *Bot) handleRegisterCallback(ctx context.Context, sc screen, userID int64, args []string) {
	w, err := b.loadRegistration(b.getUserState(ctx, userID))
	if err != nil {
		b.show(sc, "⌛ This registration has expired.", markup(btnRow(btn("📝 Register", "route:"+RouteRegister))))
		return
	}

	switch arg(args, 0) {
	case "back":
		_ = w.Back()
	case "skip":
		if w.Step == registration.StepSalonAddress {
			_ = w.Input("")
		}
	case "ok":
		b.submitRegistration(ctx, sc, userID, w)
		return
	}
	b.saveRegistration(ctx, userID, w)
	b.renderRegister(sc, w, "")
}

func (b *Bot) submitRegistration(ctx context.Context, sc screen, userID int64, w *registration.Wizard) {
	sess, err := w.Submit(ctx, b.sessions, userID)
	if err == nil {
		b.guard.Unlock(userID)
		b.setUserState(ctx, userID, "", b.keepSalon(ctx, userID, nil))
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("salon_id", sess.User.SalonID).Msg("Owner registered")
		b.show(sc, fmt.Sprintf("🎉 Welcome, <b>%s</b>! Your salon is ready.", escape(sess.User.Name)), nil)
		b.showDashboard(ctx, screen{chatID: sc.chatID}, userID)
		return
	}

	b.saveRegistration(ctx, userID, w)
	if errors.Is(err, apiclient.ErrValidation) && w.Step != registration.StepConfirm {
		b.renderRegister(sc, w, b.getErrorMessage(err))
		return
	}
	b.presentError(ctx, sc.chatID, userID, err)
}

var registerPrompts = map[registration.Step]string{
	registration.StepName:         "✍️ Type your <b>name</b>.",
	registration.StepEmail:        "📧 Type your <b>email</b>. You will log in with it.",
	registration.StepPhone:        "📞 Type your <b>phone number</b>.",
	registration.StepPassword:     "🔒 Choose a <b>password</b>: at least 8 characters with a letter and a digit.",
	registration.StepConfirmation: "🔒 Type the password <b>again</b>.",
	registration.StepSalonName:    "💈 What is your <b>salon</b> called?",
	registration.StepSalonAddress: "📍 Type the salon <b>address</b>, or skip.",
}

// registerFields maps a step to the API field whose error it shows.
var registerFields = map[registration.Step]string{
	registration.StepName:         "name",
	registration.StepEmail:        "email",
	registration.StepPhone:        "phone",
	registration.StepPassword:     "password",
	registration.StepConfirmation: "password_confirmation",
	registration.StepSalonName:    "salon_name",
	registration.StepSalonAddress: "salon_address",
}

func (b *Bot) renderRegister(sc screen, w *registration.Wizard, notice string) {
	var text strings.Builder
	text.WriteString("📝 <b>Register your salon</b>\n\n")
	if notice != "" {
		text.WriteString(notice + "\n\n")
	}

	cancel := btn("✖️ Cancel", "route:"+RouteMenu)
	var rows [][]tgbotapi.InlineKeyboardButton

	switch w.Step {
	case registration.StepConfirm:
		text.WriteString(fmt.Sprintf("✍️ %s\n📧 %s\n📞 %s\n💈 %s\n",
			escape(w.Name), escape(w.Email), escape(w.Phone), escape(w.SalonName)))
		if w.SalonAddress != "" {
			text.WriteString(fmt.Sprintf("📍 %s\n", escape(w.SalonAddress)))
		}
		text.WriteString("\nCreate the account?")
		rows = append(rows, btnRow(btn("✅ Create", "rg:ok")), btnRow(btn("⬅️ Back", "rg:back"), cancel))
	case registration.StepDone:
		text.WriteString("✅ Done.")
	default:
		text.WriteString(stepPrompt(registerPrompts[w.Step], w.Errors.First(registerFields[w.Step])))
		if w.Step == registration.StepSalonAddress {
			rows = append(rows, btnRow(btn("⏭ Skip", "rg:skip")))
		}
		if w.Step == registration.StepName {
			rows = append(rows, btnRow(cancel))
		} else {
			rows = append(rows, btnRow(btn("⬅️ Back", "rg:back"), cancel))
		}
	}

	b.show(sc, text.String(), markup(rows...))
}
