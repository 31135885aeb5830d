package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"salonbook/internal/apiclient"
	"salonbook/internal/events"
	"salonbook/internal/forms"
	"salonbook/internal/models"
	"salonbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const lockAppointment = "appointment"

// steps of the owner's new-appointment form, kept in TempData["ap_step"]
const (
	apService = "service"
	apName    = "name"
	apPhone   = "phone"
	apEmail   = "email"
	apConfirm = "confirm"
)

func (b *Bot) handleAppointmentCallback(ctx context.Context, sc screen, userID int64, args []string) {
	if arg(args, 0) == "new" {
		b.startAppointment(ctx, sc, userID, parseID(arg(args, 1)), arg(args, 2), unpackClock(arg(args, 3)))
		return
	}

	state := b.getUserState(ctx, userID)
	if state == nil || state.CurrentStep != StateAppointment {
		b.show(sc, "⌛ This form has expired.", markup(btnRow(btn("📊 Dashboard", "route:"+RouteDashboard))))
		return
	}
	if state.TempData == nil {
		state.TempData = make(map[string]interface{})
	}

	switch arg(args, 0) {
	case "s":
		client, _, ok := b.authClient(ctx, sc, userID)
		if !ok {
			return
		}
		services, err := client.ListServices(ctx, state.GetInt64("worker_id"))
		if err != nil {
			b.presentAuthError(ctx, sc.chatID, userID, err)
			return
		}
		id := parseID(arg(args, 1))
		for _, s := range services {
			if s.ID == id {
				state.TempData["service_id"] = s.ID
				state.TempData["service_name"] = s.Name
				state.TempData["ap_step"] = apName
			}
		}
	case "skip":
		if state.GetString("ap_step") == apEmail {
			state.TempData["customer_email"] = ""
			state.TempData["ap_step"] = apConfirm
		}
	case "ok":
		b.submitAppointment(ctx, sc, userID, state)
		return
	}

	b.setUserState(ctx, userID, StateAppointment, state.TempData)
	b.promptAppointment(ctx, sc, userID, state)
}

func (b *Bot) startAppointment(ctx context.Context, sc screen, userID, workerID int64, date, start string) {
	if _, _, ok := b.authClient(ctx, sc, userID); !ok {
		return
	}
	data := b.keepSalon(ctx, userID, map[string]interface{}{
		"worker_id": workerID,
		"date":      date,
		"time":      start,
		"ap_step":   apService,
	})
	b.setUserState(ctx, userID, StateAppointment, data)
	b.guard.Lock(userID, lockAppointment)
	b.promptAppointment(ctx, sc, userID, &models.UserState{UserID: userID, CurrentStep: StateAppointment, TempData: data})
}

func (b *Bot) handleAppointmentInput(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	userID := msg.From.ID
	sc := screen{chatID: msg.Chat.ID}
	if state.TempData == nil {
		state.TempData = make(map[string]interface{})
	}

	text := msg.Text
	var err error
	switch state.GetString("ap_step") {
	case apService:
		var name string
		var duration int
		if name, duration, err = parseCustomService(text); err == nil {
			state.TempData["custom_name"] = name
			state.TempData["custom_duration"] = duration
			state.TempData["ap_step"] = apName
		}
	case apName:
		var v string
		if v, err = forms.ValidateName(text); err == nil {
			state.TempData["customer_name"] = v
			state.TempData["ap_step"] = apPhone
		}
	case apPhone:
		if msg.Contact != nil {
			text = msg.Contact.PhoneNumber
		}
		var v string
		if v, err = forms.ValidatePhone(text); err == nil {
			state.TempData["customer_phone"] = v
			state.TempData["ap_step"] = apEmail
		}
	case apEmail:
		var v string
		if v, err = forms.ValidateOptionalEmail(text); err == nil {
			state.TempData["customer_email"] = v
			state.TempData["ap_step"] = apConfirm
		}
	default:
		b.promptAppointment(ctx, sc, userID, state)
		return
	}

	b.setUserState(ctx, userID, StateAppointment, state.TempData)
	if err != nil {
		b.sendMessage(sc.chatID, inputNotice(err))
	}
	b.promptAppointment(ctx, sc, userID, state)
}

// parseCustomService reads "Name, minutes".
func parseCustomService(text string) (string, int, error) {
	i := strings.LastIndex(text, ",")
	if i < 0 {
		return "", 0, errors.New("type the service as: Name, minutes")
	}
	name, err := forms.ValidateName(text[:i])
	if err != nil {
		return "", 0, err
	}
	duration, err := strconv.Atoi(strings.TrimSpace(text[i+1:]))
	if err != nil || duration <= 0 {
		return "", 0, errors.New("duration must be a positive number of minutes")
	}
	return name, duration, nil
}

func (b *Bot) promptAppointment(ctx context.Context, sc screen, userID int64, state *models.UserState) {
	workerID := state.GetInt64("worker_id")
	date, start := state.GetString("date"), state.GetString("time")

	var text strings.Builder
	text.WriteString(fmt.Sprintf("➕ <b>New appointment</b>\n📅 %s at %s\n", displayDate(date), start))
	if name := appointmentServiceName(state); name != "" {
		text.WriteString(fmt.Sprintf("💇 %s\n", escape(name)))
	}
	if v := state.GetString("customer_name"); v != "" {
		text.WriteString(fmt.Sprintf("✍️ %s\n", escape(v)))
	}
	if v := state.GetString("customer_phone"); v != "" {
		text.WriteString(fmt.Sprintf("📞 %s\n", escape(v)))
	}
	if v := state.GetString("customer_email"); v != "" {
		text.WriteString(fmt.Sprintf("📧 %s\n", escape(v)))
	}
	text.WriteString("\n")

	cancel := btnRow(btn("✖️ Cancel", fmt.Sprintf("route:%s", RouteDashboard)))
	var rows [][]tgbotapi.InlineKeyboardButton

	switch state.GetString("ap_step") {
	case apService:
		client, _, ok := b.authClient(ctx, sc, userID)
		if !ok {
			return
		}
		services, err := client.ListServices(ctx, workerID)
		if err != nil {
			b.presentAuthError(ctx, sc.chatID, userID, err)
			return
		}
		text.WriteString("Choose a service or type a custom one as <code>Name, minutes</code>.")
		for _, s := range services {
			rows = append(rows, btnRow(btn(fmt.Sprintf("%s · %d min", s.Name, s.DurationMinutes), fmt.Sprintf("ap:s:%d", s.ID))))
		}
	case apName:
		text.WriteString("✍️ Type the customer's <b>name</b>.")
	case apPhone:
		text.WriteString("📞 Type the customer's <b>phone</b>.")
	case apEmail:
		text.WriteString("📧 Type the customer's <b>email</b> or skip.")
		rows = append(rows, btnRow(btn("⏭ Skip", "ap:skip")))
	case apConfirm:
		text.WriteString("Create the appointment?")
		rows = append(rows, btnRow(btn("✅ Create", "ap:ok")))
	}
	rows = append(rows, cancel)
	b.show(sc, text.String(), markup(rows...))
}

func appointmentServiceName(state *models.UserState) string {
	if v := state.GetString("service_name"); v != "" {
		return v
	}
	if v := state.GetString("custom_name"); v != "" {
		return fmt.Sprintf("%s (%d min)", v, state.GetInt64("custom_duration"))
	}
	return ""
}

func appointmentRequest(state *models.UserState) models.CreateAppointmentRequest {
	req := models.CreateAppointmentRequest{
		WorkerID:      state.GetInt64("worker_id"),
		Date:          state.GetString("date"),
		StartTime:     state.GetString("time"),
		CustomerName:  state.GetString("customer_name"),
		CustomerPhone: state.GetString("customer_phone"),
		CustomerEmail: state.GetString("customer_email"),
	}
	if id := state.GetInt64("service_id"); id != 0 {
		req.ServiceID = &id
	} else {
		req.CustomServiceName = state.GetString("custom_name")
		req.CustomServiceDuration = int(state.GetInt64("custom_duration"))
	}
	return req
}

func (b *Bot) submitAppointment(ctx context.Context, sc screen, userID int64, state *models.UserState) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	req := appointmentRequest(state)

	appt, err := b.dashboard.CreateAppointment(ctx, client, req, b.now())
	switch {
	case err == nil:
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("appointment_id", appt.ID).Msg("Appointment created")
		b.guard.Unlock(userID)
		b.setUserState(ctx, userID, "", b.keepSalon(ctx, userID, nil))
		b.showDay(ctx, sc, userID, req.WorkerID, req.Date)
	case slotRefused(err):
		// the grid was stale: report, drop the form and show the fresh day
		if errors.Is(err, apiclient.ErrConflict) {
			client.MarkStale(ctx, events.EventBookingConflict, events.ChangeEventPayload{WorkerID: req.WorkerID, Date: req.Date})
		}
		b.guard.Unlock(userID)
		b.setUserState(ctx, userID, "", b.keepSalon(ctx, userID, nil))
		b.presentAuthError(ctx, sc.chatID, userID, err)
		b.showDay(ctx, screen{chatID: sc.chatID}, userID, req.WorkerID, req.Date)
	default:
		b.presentAuthError(ctx, sc.chatID, userID, err)
	}
}

func slotRefused(err error) bool {
	for _, target := range []error{
		apiclient.ErrConflict, service.ErrPastSlot, service.ErrBreakSlot,
		service.ErrOffDaySlot, service.ErrClosedDay, service.ErrSlotBusy, service.ErrAfterHours,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
