package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/apiclient"
	"salonbook/internal/forms"
	"salonbook/internal/models"
	"salonbook/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// authClient returns the user's authenticated client or reports why there is none.
func (b *Bot) authClient(ctx context.Context, sc screen, userID int64) (*apiclient.Client, *models.Session, bool) {
	client, sess, err := b.sessions.Client(ctx, userID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return nil, nil, false
	}
	return client, sess, true
}

// showDashboard verifies the session with the API and lists the workers.
func (b *Bot) showDashboard(ctx context.Context, sc screen, userID int64) {
	if _, err := b.sessions.Init(ctx, userID); err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	b.showWorkers(ctx, sc, userID, 0)
}

func (b *Bot) showWorkers(ctx context.Context, sc screen, userID int64, page int) {
	client, sess, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	workers, err := client.ListWorkers(ctx)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	b.renderPaginatedWorkers(PaginationParams{
		Screen:     sc,
		Page:       page,
		Title:      fmt.Sprintf("📊 <b>Dashboard</b>\n%s\n\n👥 <b>Workers</b>", formatSession(sess)),
		ItemPrefix: "db:w:",
		PagePrefix: "db:wp:",
		Footer: [][]tgbotapi.InlineKeyboardButton{
			btnRow(btn("➕ Add worker", "db:wadd"), btn("👤 Profile", "db:me")),
		},
		BackCallback: "route:" + RouteMenu,
		BackLabel:    "🏠 Menu",
	}, workers)
}

func (b *Bot) handleDashboardCallback(ctx context.Context, sc screen, userID int64, args []string) {
	workerID := parseID(arg(args, 1))

	switch arg(args, 0) {
	case "wp":
		page, _ := strconv.Atoi(arg(args, 1))
		b.showWorkers(ctx, sc, userID, page)
	case "w":
		b.showWorker(ctx, sc, userID, workerID)
	case "wadd":
		b.promptInput(ctx, sc, userID, StateWorkerInput, nil,
			"➕ <b>New worker</b>\n\nType: <code>Name; slot minutes; booking window days</code>\n"+
				"e.g. <code>Anna; 30; 30</code>. A negative slot size sizes slots per service.")
	case "wdel":
		b.show(sc, "🗑 Delete this worker with all services and schedules?", markup(btnRow(
			btn("🗑 Delete", fmt.Sprintf("db:wdel!:%d", workerID)),
			btn("↩️ Keep", fmt.Sprintf("db:w:%d", workerID)))))
	case "wdel!":
		b.deleteWorker(ctx, sc, userID, workerID)
	case "day":
		b.showDay(ctx, sc, userID, workerID, arg(args, 2))
	case "dayr":
		b.showDay(apiclient.WithFreshRead(ctx), sc, userID, workerID, arg(args, 2))
	case "svc":
		b.showServices(ctx, sc, userID, workerID)
	case "sadd":
		b.promptInput(ctx, sc, userID, StateServiceInput, map[string]interface{}{"worker_id": workerID},
			"💇 <b>New service</b>\n\nType: <code>Name; duration minutes; price</code>\ne.g. <code>Haircut; 60; 35</code>")
	case "sdel":
		b.deleteService(ctx, sc, userID, workerID, parseID(arg(args, 2)))
	case "sch":
		b.showSchedule(ctx, sc, userID, workerID)
	case "schd":
		day, _ := strconv.Atoi(arg(args, 2))
		b.promptInput(ctx, sc, userID, StateScheduleInput,
			map[string]interface{}{"worker_id": workerID, "day": day, "schedule_id": parseID(arg(args, 3))},
			fmt.Sprintf("🗓 <b>%s</b>\n\nType the hours: <code>09:00-18:00</code>\nwith a break: <code>09:00-18:00 13:00-14:00</code>\nor <code>off</code> for a day off.",
				weekdayName(day)))
	case "off":
		b.showOffDays(ctx, sc, userID, workerID)
	case "oadd":
		b.promptInput(ctx, sc, userID, StateOffDayInput, map[string]interface{}{"worker_id": workerID},
			"🏖 <b>New off-days</b>\n\nType: <code>start [end] [reason]</code>\ne.g. <code>2025-07-01 2025-07-14 vacation</code>")
	case "odel":
		b.deleteOffDay(ctx, sc, userID, workerID, parseID(arg(args, 2)))
	case "ts":
		b.promptInput(ctx, sc, userID, StateTimeSlotInput, map[string]interface{}{"worker_id": workerID},
			"⏱ <b>Slot size</b>\n\nType the minutes, e.g. <code>30</code>.\nA negative value like <code>-15</code> sizes slots per service with 15 minute steps.\nEvery service duration must be a multiple of it.")
	case "exp":
		b.exportWeek(ctx, sc, userID, workerID, arg(args, 2))
	case "me":
		b.showProfile(ctx, sc, userID)
	case "meedit":
		b.promptInput(ctx, sc, userID, StateProfileInput, nil,
			"👤 Type: <code>Name; phone</code>")
	}
}

// promptInput waits for a text answer to a dashboard form.
func (b *Bot) promptInput(ctx context.Context, sc screen, userID int64, step string, data map[string]interface{}, prompt string) {
	b.setUserState(ctx, userID, step, b.keepSalon(ctx, userID, data))
	b.show(sc, prompt, markup(btnRow(btn("✖️ Cancel", "db:wp:0"))))
}

func (b *Bot) showWorker(ctx context.Context, sc screen, userID, workerID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	worker, err := client.GetWorker(ctx, workerID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("👤 <b>%s</b>\n", escape(worker.Name)))
	if worker.DynamicSlots() {
		text.WriteString(fmt.Sprintf("⏱ Slots sized per service, %d min steps\n", worker.Interval()))
	} else {
		text.WriteString(fmt.Sprintf("⏱ %d min slots\n", worker.Interval()))
	}
	window := worker.BookingWindowDays
	if window <= 0 {
		window = models.DefaultBookingWindowDays
	}
	text.WriteString(fmt.Sprintf("📆 Bookable %d days ahead\n", window))

	today := b.today()
	b.show(sc, text.String(), markup(
		btnRow(btn("📅 Appointments", fmt.Sprintf("db:day:%d:%s", workerID, today))),
		btnRow(btn("💇 Services", fmt.Sprintf("db:svc:%d", workerID)), btn("🗓 Schedule", fmt.Sprintf("db:sch:%d", workerID))),
		btnRow(btn("🏖 Off-days", fmt.Sprintf("db:off:%d", workerID)), btn("⏱ Slot size", fmt.Sprintf("db:ts:%d", workerID))),
		btnRow(btn("📤 Export week", fmt.Sprintf("db:exp:%d:%s", workerID, today)), btn("🗑 Delete", fmt.Sprintf("db:wdel:%d", workerID))),
		btnRow(btn("⬅️ Workers", "db:wp:0")),
	))
}

// showDay renders the slot grid of a worker day.
func (b *Bot) showDay(ctx context.Context, sc screen, userID, workerID int64, date string) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	if date == "" {
		date = b.today()
	}
	view, err := b.dashboard.WorkerDay(ctx, client, workerID, date, b.now())
	if err != nil {
		// the grid stays as it was; the user can retry from the same screen
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	dayCb := func(d string) string { return fmt.Sprintf("db:day:%d:%s", workerID, d) }
	text, rows := renderDayView(view, workerID)
	rows = append(rows,
		dayNavRow(date, b.today(), dayCb),
		weekNavRow(date, dayCb),
		btnRow(btn("🔄 Refresh", fmt.Sprintf("db:dayr:%d:%s", workerID, date)), btn("⬅️ Worker", fmt.Sprintf("db:w:%d", workerID))),
	)
	b.show(sc, text, markup(rows...))
}

// renderDayView draws one line per grid row and a button per slot open for a new appointment.
func renderDayView(view *slots.DayView, workerID int64) (string, [][]tgbotapi.InlineKeyboardButton) {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("📅 <b>%s</b>\n\n", displayDate(view.Date)))

	switch {
	case view.OffDay != nil:
		text.WriteString(fmt.Sprintf("🏖 Off-day %s – %s", displayDate(view.OffDay.StartDate), displayDate(view.OffDay.EndDate)))
		if view.OffDay.Reason != "" {
			text.WriteString(": " + escape(view.OffDay.Reason))
		}
		return text.String(), nil
	case view.Closed:
		text.WriteString("🚫 Not working on this day.")
		return text.String(), nil
	}

	if view.Misaligned {
		text.WriteString(fmt.Sprintf("⚠️ The working day starts at %s, which is not on the %d min grid.\n\n",
			view.Schedule.StartTime, view.Interval))
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, row := range view.Rows {
		text.WriteString(fmt.Sprintf("<code>%s</code> ", row.Label))
		switch {
		case len(row.Placements) > 0:
			for i, p := range row.Placements {
				if i > 0 {
					text.WriteString("\n      ")
				}
				text.WriteString(placementLine(p, view.Interval))
			}
		case row.Busy:
			text.WriteString("↳")
		case row.Break:
			text.WriteString("☕ break")
		case row.Past:
			text.WriteString("·")
		default:
			text.WriteString("free")
		}
		text.WriteString("\n")

		if row.Free() {
			buttons = append(buttons, btn("➕ "+row.Label,
				fmt.Sprintf("ap:new:%d:%s:%s", workerID, view.Date, packClock(row.Label))))
		}
	}
	return text.String(), chunk(buttons, 4)
}

// placementLine describes an appointment with its offset inside the row and its row span.
func placementLine(p slots.Placement, interval int) string {
	a := p.Appointment
	line := fmt.Sprintf("✂️ %s · %s", escape(a.CustomerName), escape(a.Title()))
	if p.OffsetPct > 0 {
		line += fmt.Sprintf(" from %s", a.StartTime)
	}
	if rowsSpan := p.HeightPx / slots.BaseHeight(interval); rowsSpan != 1 {
		line += fmt.Sprintf(" (%d min, %.1f rows)", a.DurationMinutes(), rowsSpan)
	} else {
		line += fmt.Sprintf(" (%d min)", a.DurationMinutes())
	}
	if p.Overlaps {
		line += " ⚠️ overlaps"
	}
	return line
}

func (b *Bot) showServices(ctx context.Context, sc screen, userID, workerID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	services, err := client.ListServices(ctx, workerID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	var text strings.Builder
	text.WriteString("💇 <b>Services</b>\n\n")
	if len(services) == 0 {
		text.WriteString("No services yet.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range services {
		text.WriteString(fmt.Sprintf("• %s · %d min · %s\n", escape(s.Name), s.DurationMinutes, formatPrice(s.Price)))
		rows = append(rows, btnRow(btn("🗑 "+s.Name, fmt.Sprintf("db:sdel:%d:%d", workerID, s.ID))))
	}
	rows = append(rows,
		btnRow(btn("➕ Add service", fmt.Sprintf("db:sadd:%d", workerID))),
		btnRow(btn("⬅️ Worker", fmt.Sprintf("db:w:%d", workerID))))
	b.show(sc, text.String(), markup(rows...))
}

func (b *Bot) deleteService(ctx context.Context, sc screen, userID, workerID, serviceID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	if err := client.DeleteService(ctx, workerID, serviceID); err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	b.showServices(ctx, sc, userID, workerID)
}

func (b *Bot) showSchedule(ctx context.Context, sc screen, userID, workerID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	schedules, err := client.ListWorkSchedules(ctx, workerID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	var text strings.Builder
	text.WriteString("🗓 <b>Weekly schedule</b>\n\n")
	var buttons []tgbotapi.InlineKeyboardButton
	for _, day := range weekOrder {
		s := models.ScheduleFor(schedules, time.Weekday(day))
		text.WriteString(fmt.Sprintf("<b>%s</b>: %s\n", weekdayShort(day), formatSchedule(s)))

		var id int64
		if s != nil {
			id = s.ID
		}
		buttons = append(buttons, btn(weekdayShort(day), fmt.Sprintf("db:schd:%d:%d:%d", workerID, day, id)))
	}
	rows := chunk(buttons, 4)
	rows = append(rows, btnRow(btn("⬅️ Worker", fmt.Sprintf("db:w:%d", workerID))))
	b.show(sc, text.String(), markup(rows...))
}

func formatSchedule(s *models.WorkSchedule) string {
	if s == nil || !s.IsWorking {
		return "day off"
	}
	out := fmt.Sprintf("%s–%s", s.StartTime, s.EndTime)
	if s.HasBreak {
		out += fmt.Sprintf(", break %s–%s", s.BreakStart, s.BreakEnd)
	}
	return out
}

func (b *Bot) showOffDays(ctx context.Context, sc screen, userID, workerID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	offDays, err := client.ListOffDays(ctx, workerID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	var text strings.Builder
	text.WriteString("🏖 <b>Off-days</b>\n\n")
	if len(offDays) == 0 {
		text.WriteString("None planned.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range offDays {
		period := displayDate(o.StartDate)
		if o.EndDate != "" && o.EndDate != o.StartDate {
			period += " – " + displayDate(o.EndDate)
		}
		line := period
		if o.Reason != "" {
			line += ": " + escape(o.Reason)
		}
		text.WriteString("• " + line + "\n")
		rows = append(rows, btnRow(btn("🗑 "+period, fmt.Sprintf("db:odel:%d:%d", workerID, o.ID))))
	}
	rows = append(rows,
		btnRow(btn("➕ Add off-days", fmt.Sprintf("db:oadd:%d", workerID))),
		btnRow(btn("⬅️ Worker", fmt.Sprintf("db:w:%d", workerID))))
	b.show(sc, text.String(), markup(rows...))
}

func (b *Bot) deleteOffDay(ctx context.Context, sc screen, userID, workerID, offDayID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	if err := b.dashboard.RemoveOffDay(ctx, client, workerID, offDayID); err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	b.showOffDays(ctx, sc, userID, workerID)
}

func (b *Bot) deleteWorker(ctx context.Context, sc screen, userID, workerID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	if err := client.DeleteWorker(ctx, workerID); err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("worker_id", workerID).Msg("Worker deleted")
	b.showWorkers(ctx, sc, userID, 0)
}

func (b *Bot) showProfile(ctx context.Context, sc screen, userID int64) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	user, err := client.GetUser(ctx)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	text := fmt.Sprintf("👤 <b>%s</b>\n📧 %s\n📞 %s", escape(user.Name), escape(user.Email), escape(user.Phone))
	b.show(sc, text, markup(
		btnRow(btn("✏️ Edit", "db:meedit")),
		btnRow(btn("⬅️ Dashboard", "db:wp:0"))))
}

// handleDashboardInput applies the text answer to a dashboard form.
func (b *Bot) handleDashboardInput(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	userID := msg.From.ID
	sc := screen{chatID: msg.Chat.ID}
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}

	workerID := state.GetInt64("worker_id")
	var (
		err  error
		done func()
	)

	switch state.CurrentStep {
	case StateWorkerInput:
		var w models.Worker
		if w, err = parseWorkerInput(msg.Text); err == nil {
			var created *models.Worker
			if created, err = client.CreateWorker(ctx, w); err == nil {
				done = func() { b.showWorker(ctx, sc, userID, created.ID) }
			}
		}
	case StateServiceInput:
		var svc models.Service
		if svc, err = parseServiceInput(msg.Text); err == nil {
			var worker *models.Worker
			if worker, err = client.GetWorker(ctx, workerID); err == nil {
				if _, err = b.dashboard.SaveService(ctx, client, *worker, svc); err == nil {
					done = func() { b.showServices(ctx, sc, userID, workerID) }
				}
			}
		}
	case StateScheduleInput:
		var sched models.WorkSchedule
		if sched, err = parseScheduleInput(msg.Text); err == nil {
			sched.ID = state.GetInt64("schedule_id")
			sched.WorkerID = workerID
			sched.DayOfWeek = int(state.GetInt64("day"))
			if _, err = b.dashboard.SaveSchedule(ctx, client, sched); err == nil {
				done = func() { b.showSchedule(ctx, sc, userID, workerID) }
			}
		}
	case StateOffDayInput:
		var req models.OffDayRequest
		if req, err = parseOffDayInput(msg.Text); err == nil {
			if _, err = b.dashboard.AddOffDay(ctx, client, workerID, req); err == nil {
				done = func() { b.showOffDays(ctx, sc, userID, workerID) }
			}
		}
	case StateTimeSlotInput:
		var timeSlot int
		if timeSlot, err = strconv.Atoi(strings.TrimSpace(msg.Text)); err != nil || timeSlot == 0 {
			err = forms.FieldErrors{"time_slot": {"type a non-zero number of minutes"}}
		} else if _, err = b.dashboard.UpdateTimeSlot(ctx, client, workerID, timeSlot); err == nil {
			done = func() { b.showWorker(ctx, sc, userID, workerID) }
		}
	case StateProfileInput:
		var edit models.User
		if edit, err = parseProfileInput(msg.Text); err == nil {
			var user *models.User
			if user, err = client.GetUser(ctx); err == nil {
				user.Name = edit.Name
				if edit.Phone != "" {
					user.Phone = edit.Phone
				}
				if _, err = client.UpdateUser(ctx, *user); err == nil {
					done = func() { b.showProfile(ctx, sc, userID) }
				}
			}
		}
	}

	if err != nil {
		// keep the form open so the user can correct the input
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	b.setUserState(ctx, userID, "", b.keepSalon(ctx, userID, nil))
	if done != nil {
		done()
	}
}

func splitFields(text string, max int) []string {
	parts := strings.SplitN(text, ";", max)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseWorkerInput(text string) (models.Worker, error) {
	parts := splitFields(text, 3)
	fe := forms.FieldErrors{}
	var w models.Worker

	name, err := forms.ValidateName(parts[0])
	if err != nil {
		fe.Add("name", err.Error())
	}
	w.Name = name
	w.IsActive = true

	if len(parts) < 2 {
		fe.Add("time_slot", "slot minutes are required")
	} else if w.TimeSlot, err = strconv.Atoi(parts[1]); err != nil || w.TimeSlot == 0 {
		fe.Add("time_slot", "must be a non-zero number of minutes")
	}
	if len(parts) == 3 && parts[2] != "" {
		if w.BookingWindowDays, err = strconv.Atoi(parts[2]); err != nil || w.BookingWindowDays <= 0 {
			fe.Add("booking_window", "must be a positive number of days")
		}
	}
	return w, fe.Err()
}

func parseServiceInput(text string) (models.Service, error) {
	parts := splitFields(text, 3)
	fe := forms.FieldErrors{}
	svc := models.Service{Name: parts[0]}

	if len(parts) < 2 {
		fe.Add("duration", "duration is required")
	} else if d, err := strconv.Atoi(parts[1]); err != nil {
		fe.Add("duration", "must be a number of minutes")
	} else {
		svc.DurationMinutes = d
	}
	if len(parts) == 3 && parts[2] != "" {
		p, err := strconv.ParseFloat(strings.ReplaceAll(parts[2], ",", "."), 64)
		if err != nil {
			fe.Add("price", "must be a number")
		}
		svc.Price = p
	}
	return svc, fe.Err()
}

// parseScheduleInput reads "off", "HH:MM-HH:MM" or "HH:MM-HH:MM HH:MM-HH:MM" (hours and break).
func parseScheduleInput(text string) (models.WorkSchedule, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "off" || text == "-" {
		return models.WorkSchedule{IsWorking: false}, nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 2 {
		return models.WorkSchedule{}, forms.FieldErrors{"start_time": {"use 09:00-18:00 with an optional break 13:00-14:00"}}
	}
	s := models.WorkSchedule{IsWorking: true}
	var ok bool
	if s.StartTime, s.EndTime, ok = strings.Cut(fields[0], "-"); !ok {
		return models.WorkSchedule{}, forms.FieldErrors{"start_time": {"use 09:00-18:00"}}
	}
	if len(fields) == 2 {
		s.HasBreak = true
		if s.BreakStart, s.BreakEnd, ok = strings.Cut(fields[1], "-"); !ok {
			return models.WorkSchedule{}, forms.FieldErrors{"break_start": {"use 13:00-14:00"}}
		}
	}
	return s, nil
}

// parseOffDayInput reads "start [end] [reason]"; a single date is a one-day range.
func parseOffDayInput(text string) (models.OffDayRequest, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return models.OffDayRequest{}, forms.FieldErrors{"start_date": {forms.ErrRequired.Error()}}
	}
	start, err := parseDateInput(fields[0])
	if err != nil {
		return models.OffDayRequest{}, forms.FieldErrors{"start_date": {err.Error()}}
	}
	req := models.OffDayRequest{StartDate: start, EndDate: start}
	rest := fields[1:]
	if len(rest) > 0 {
		if end, err := parseDateInput(rest[0]); err == nil {
			req.EndDate = end
			rest = rest[1:]
		}
	}
	req.Reason = strings.Join(rest, " ")
	return req, nil
}

func parseProfileInput(text string) (models.User, error) {
	parts := splitFields(text, 2)
	fe := forms.FieldErrors{}
	var u models.User
	var err error
	if u.Name, err = forms.ValidateName(parts[0]); err != nil {
		fe.Add("name", err.Error())
	}
	if len(parts) == 2 && parts[1] != "" {
		if u.Phone, err = forms.ValidatePhone(parts[1]); err != nil {
			fe.Add("phone", err.Error())
		}
	}
	return u, fe.Err()
}
