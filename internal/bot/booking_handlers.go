package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salonbook/internal/apiclient"
	"salonbook/internal/booking"
	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const lockBooking = "booking"

func (b *Bot) startBooking(ctx context.Context, sc screen, userID, salonID int64) {
	if salonID == 0 {
		b.show(sc, "💈 Open the booking link of your salon to book an appointment.", nil)
		return
	}

	w := booking.New(salonID)
	b.saveBooking(ctx, userID, w)
	b.guard.Lock(userID, lockBooking)
	b.renderBooking(ctx, sc, userID, w, "")
}

func (b *Bot) loadBooking(ctx context.Context, state *models.UserState) (*booking.Wizard, error) {
	if state == nil || state.CurrentStep != StateBooking || len(state.Wizard) == 0 {
		return nil, errors.New("no booking in progress")
	}
	return booking.Decode(state.Wizard)
}

func (b *Bot) saveBooking(ctx context.Context, userID int64, w *booking.Wizard) {
	if err := b.stateService.SaveWizard(ctx, userID, StateBooking, w); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to save booking")
	}
}

func (b *Bot) resumeBooking(ctx context.Context, sc screen, userID int64, state *models.UserState) {
	w, err := b.loadBooking(ctx, state)
	if err != nil {
		b.startBooking(ctx, sc, userID, b.salonOf(state))
		return
	}
	b.renderBooking(ctx, sc, userID, w, "")
}

func (b *Bot) handleBookingCallback(ctx context.Context, sc screen, userID int64, args []string) {
	w, err := b.loadBooking(ctx, b.getUserState(ctx, userID))
	if err != nil {
		b.show(sc, "⌛ This booking has expired.", markup(btnRow(btn("📅 Book again", "route:"+RouteBook))))
		return
	}

	api := b.sessions.Public()
	now := b.now()
	var notice string

	switch arg(args, 0) {
	case "w":
		worker, err := api.GetWorker(ctx, parseID(arg(args, 1)))
		if err != nil {
			b.presentError(ctx, sc.chatID, userID, err)
			return
		}
		err = w.SelectWorker(*worker)
		notice = inputNotice(err)
	case "s":
		svc, err := b.findService(ctx, w.WorkerID, parseID(arg(args, 1)))
		if err != nil {
			b.presentError(ctx, sc.chatID, userID, err)
			return
		}
		err = w.SelectService(*svc)
		notice = inputNotice(err)
	case "d":
		err = w.SelectDate(arg(args, 1), now, b.loc, b.publicOffDays(ctx, w.WorkerID))
		if err == nil {
			err = w.LoadSlots(ctx, api, now, b.loc)
			if err != nil {
				b.saveBooking(ctx, userID, w)
				b.presentError(ctx, sc.chatID, userID, err)
				return
			}
		}
		notice = inputNotice(err)
	case "t":
		notice = inputNotice(w.SelectTime(unpackClock(arg(args, 1))))
	case "skip":
		notice = inputNotice(w.SetEmail(""))
	case "back":
		if err := w.Back(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Str("step", string(w.Step)).Msg("Booking step back refused")
			notice = inputNotice(err)
		}
	case "edit":
		if err := w.GoTo(booking.Step(arg(args, 1))); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Str("step", string(w.Step)).Msg("Booking step jump refused")
			notice = inputNotice(err)
		}
	case "refresh":
		if err := w.LoadSlots(apiclient.WithFreshRead(ctx), api, now, b.loc); err != nil {
			b.presentError(ctx, sc.chatID, userID, err)
			return
		}
	case "ok":
		b.submitBooking(ctx, sc, userID, w)
		return
	}

	b.saveBooking(ctx, userID, w)
	b.renderBooking(ctx, sc, userID, w, notice)
}

func (b *Bot) handleBookingInput(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	userID := msg.From.ID
	sc := screen{chatID: msg.Chat.ID}

	w, err := b.loadBooking(ctx, state)
	if err != nil {
		b.resetDialog(ctx, userID)
		b.showMainMenu(ctx, sc, userID)
		return
	}

	text := msg.Text
	switch w.Step {
	case booking.StepName:
		err = w.SetName(text)
	case booking.StepPhone:
		if msg.Contact != nil {
			text = msg.Contact.PhoneNumber
		}
		err = w.SetPhone(text)
	case booking.StepEmail:
		err = w.SetEmail(text)
	default:
		b.renderBooking(ctx, sc, userID, w, "👆 Please use the buttons.")
		return
	}

	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("step", string(w.Step)).Msg("Booking input rejected")
	}
	// the step prompt shows the field error itself
	b.saveBooking(ctx, userID, w)
	b.renderBooking(ctx, sc, userID, w, "")
}

// inputNotice is the short complaint shown above a step whose input was rejected.
func inputNotice(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, booking.ErrInvalidTransition) {
		return "⚠️ This choice is no longer available here."
	}
	return "⚠️ " + escape(err.Error())
}

func (b *Bot) submitBooking(ctx context.Context, sc screen, userID int64, w *booking.Wizard) {
	api := b.sessions.Public()
	appt, err := w.Submit(ctx, api, b.now(), b.loc)
	switch {
	case err == nil:
		b.guard.Unlock(userID)
		b.resetDialog(ctx, userID)
		b.renderBookingDone(sc, w, appt)
		return
	case errors.Is(err, booking.ErrSlotTaken):
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("worker_id", w.WorkerID).Str("date", w.Date).Msg("Slot taken while booking")
		b.saveBooking(ctx, userID, w)
		b.renderBooking(ctx, sc, userID, w, b.getErrorMessage(err))
		return
	}

	b.saveBooking(ctx, userID, w)
	if len(w.Errors) > 0 && w.Step != booking.StepConfirm {
		b.renderBooking(ctx, sc, userID, w, b.getErrorMessage(err))
		return
	}
	b.presentError(ctx, sc.chatID, userID, err)
}

func (b *Bot) findService(ctx context.Context, workerID, serviceID int64) (*models.Service, error) {
	services, err := b.sessions.Public().ListServices(ctx, workerID)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == serviceID {
			return &services[i], nil
		}
	}
	return nil, fmt.Errorf("service %d of worker %d: %w", serviceID, workerID, apiclient.ErrNotFound)
}

// publicOffDays is best effort: the server rejects unavailable dates anyway.
func (b *Bot) publicOffDays(ctx context.Context, workerID int64) []models.OffDay {
	offDays, err := b.sessions.Public().ListOffDays(ctx, workerID)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Int64("worker_id", workerID).Msg("Off-days unavailable for booking")
		return nil
	}
	return offDays
}

func (b *Bot) renderBooking(ctx context.Context, sc screen, userID int64, w *booking.Wizard, notice string) {
	var text strings.Builder
	if notice != "" {
		text.WriteString(notice + "\n\n")
	}
	text.WriteString(bookingSummary(w))

	api := b.sessions.Public()
	back := btnRow(btn("⬅️ Back", "bk:back"), btn("✖️ Cancel", "route:"+RouteMenu))
	var rows [][]tgbotapi.InlineKeyboardButton

	switch w.Step {
	case booking.StepWorker:
		salon, err := api.GetSalon(ctx, w.SalonID)
		if err != nil {
			b.presentError(ctx, sc.chatID, userID, err)
			return
		}
		text.WriteString("👤 <b>Choose a specialist</b>")
		for _, worker := range salon.Workers {
			rows = append(rows, btnRow(btn(worker.Name, fmt.Sprintf("bk:w:%d", worker.ID))))
		}
		if len(rows) == 0 {
			text.WriteString("\n\nNobody is taking bookings right now.")
		}
		rows = append(rows, btnRow(btn("✖️ Cancel", "route:"+RouteMenu)))

	case booking.StepService:
		services, err := api.ListServices(ctx, w.WorkerID)
		if err != nil {
			b.presentError(ctx, sc.chatID, userID, err)
			return
		}
		text.WriteString("💇 <b>Choose a service</b>")
		for _, s := range services {
			rows = append(rows, btnRow(btn(
				fmt.Sprintf("%s · %d min · %s", s.Name, s.DurationMinutes, formatPrice(s.Price)),
				fmt.Sprintf("bk:s:%d", s.ID))))
		}
		rows = append(rows, back)

	case booking.StepDate:
		text.WriteString("📅 <b>Choose a date</b>")
		rows = dateRows(w.DateOptions(b.now(), b.loc, b.publicOffDays(ctx, w.WorkerID)), "bk:d:")
		rows = append(rows, back)

	case booking.StepTime:
		if w.AvailableSlots == nil {
			if err := w.LoadSlots(ctx, api, b.now(), b.loc); err != nil {
				b.presentError(ctx, sc.chatID, userID, err)
				return
			}
			b.saveBooking(ctx, userID, w)
		}
		if len(w.AvailableSlots) == 0 {
			text.WriteString("🕐 No free time left on this day. Please pick another date.")
		} else {
			text.WriteString("🕐 <b>Choose a time</b>")
		}
		var buttons []tgbotapi.InlineKeyboardButton
		for _, s := range w.AvailableSlots {
			buttons = append(buttons, btn(s, "bk:t:"+packClock(s)))
		}
		rows = chunk(buttons, 4)
		rows = append(rows, btnRow(btn("🔄 Refresh", "bk:refresh")), back)

	case booking.StepName:
		text.WriteString(stepPrompt("✍️ Type your <b>name</b>.", w.Errors.First("customer_name")))
		rows = append(rows, back)

	case booking.StepPhone:
		text.WriteString(stepPrompt("📞 Type your <b>phone number</b> or share your contact.", w.Errors.First("customer_phone")))
		rows = append(rows, back)

	case booking.StepEmail:
		text.WriteString(stepPrompt("📧 Type your <b>email</b> to receive a confirmation, or skip.", w.Errors.First("customer_email")))
		rows = append(rows, btnRow(btn("⏭ Skip", "bk:skip")), back)

	case booking.StepConfirm:
		text.WriteString("Everything correct?")
		rows = append(rows,
			btnRow(btn("✅ Confirm booking", "bk:ok")),
			btnRow(btn("🕐 Change time", "bk:edit:"+string(booking.StepTime)), btn("✍️ Change contacts", "bk:edit:"+string(booking.StepName))),
			back)

	case booking.StepDone:
		b.renderBookingDone(sc, w, w.Appointment)
		return
	}

	b.show(sc, text.String(), markup(rows...))
}

func stepPrompt(prompt, fieldErr string) string {
	if fieldErr == "" {
		return prompt
	}
	return fmt.Sprintf("⚠️ %s\n\n%s", escape(fieldErr), prompt)
}

// bookingSummary lists what the user has chosen so far.
func bookingSummary(w *booking.Wizard) string {
	var sb strings.Builder
	if w.WorkerName != "" {
		sb.WriteString(fmt.Sprintf("👤 %s\n", escape(w.WorkerName)))
	}
	if w.ServiceName != "" {
		sb.WriteString(fmt.Sprintf("💇 %s (%d min)\n", escape(w.ServiceName), w.ServiceDuration))
	}
	if w.Date != "" {
		sb.WriteString(fmt.Sprintf("📅 %s", displayDate(w.Date)))
		if w.SelectedTime != "" {
			sb.WriteString(" at " + w.SelectedTime)
		}
		sb.WriteString("\n")
	}
	if w.CustomerName != "" {
		sb.WriteString(fmt.Sprintf("✍️ %s\n", escape(w.CustomerName)))
	}
	if w.CustomerPhone != "" {
		sb.WriteString(fmt.Sprintf("📞 %s\n", escape(w.CustomerPhone)))
	}
	if w.CustomerEmail != "" {
		sb.WriteString(fmt.Sprintf("📧 %s\n", escape(w.CustomerEmail)))
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Bot) renderBookingDone(sc screen, w *booking.Wizard, appt *models.Appointment) {
	date, start := w.Date, w.SelectedTime
	if appt != nil {
		if appt.Date != "" {
			date = appt.Date
		}
		if appt.StartTime != "" {
			start = appt.StartTime
		}
	}
	text := fmt.Sprintf("🎉 <b>You are booked!</b>\n\n👤 %s\n💇 %s\n📅 %s at %s\n\nSee you soon.",
		escape(w.WorkerName), escape(w.ServiceName), displayDate(date), start)
	b.show(sc, text, markup(btnRow(btn("📅 Book another", "route:"+RouteBook), btn("🏠 Menu", "route:"+RouteMenu))))
}
