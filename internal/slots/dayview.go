package slots

import (
	"time"

	"salonbook/internal/models"
)

// DayInput is everything fetched for one worker and date.
type DayInput struct {
	Date         string
	Worker       models.Worker
	Schedules    []models.WorkSchedule
	OffDays      []models.OffDay
	Appointments []models.Appointment
	Now          time.Time
	Location     *time.Location
}

// Row is one grid label with its state. Busy is set when any appointment overlaps the
// row, Placements only holds the ones that start in it.
type Row struct {
	Label      string
	Break      bool
	Past       bool
	Busy       bool
	Clickable  bool
	Placements []Placement
}

// Free reports whether the row accepts a new appointment.
func (r Row) Free() bool {
	return r.Clickable && !r.Busy && len(r.Placements) == 0
}

// Fit is the outcome of checking a new appointment span against the day.
type Fit int

const (
	Fits Fit = iota
	FitBusy
	FitBreak
	FitAfterHours
)

// DayView is the derived grid of a worker day.
type DayView struct {
	Date       string
	Interval   int
	Schedule   *models.WorkSchedule
	OffDay     *models.OffDay
	Closed     bool
	Misaligned bool
	Rows       []Row

	Appointments []models.Appointment
}

// FreeLabels returns the labels that accept a new appointment.
func (v *DayView) FreeLabels() []string {
	var free []string
	for _, r := range v.Rows {
		if r.Free() {
			free = append(free, r.Label)
		}
	}
	return free
}

// Row returns the row with the given label.
func (v *DayView) Row(label string) (Row, bool) {
	for _, r := range v.Rows {
		if r.Label == label {
			return r, true
		}
	}
	return Row{}, false
}

// Fit checks that [start, start+duration) stays inside working hours, clear of the
// break and of every appointment. A non-positive duration counts as one slot.
func (v *DayView) Fit(start string, duration int) Fit {
	if duration <= 0 {
		duration = v.Interval
	}
	from, err := models.ParseClock(start)
	if err != nil || v.Schedule == nil {
		return FitAfterHours
	}
	to := from + duration
	if end, err := models.ParseClock(v.Schedule.EndTime); err != nil || to > end {
		return FitAfterHours
	}
	if v.Schedule.HasBreak {
		bs, errStart := models.ParseClock(v.Schedule.BreakStart)
		be, errEnd := models.ParseClock(v.Schedule.BreakEnd)
		if errStart == nil && errEnd == nil && from < be && bs < to {
			return FitBreak
		}
	}
	for i := range v.Appointments {
		if s, e, ok := span(v.Appointments[i]); ok && from < e && s < to {
			return FitBusy
		}
	}
	return Fits
}

// BuildDayView derives the grid. An off-day suppresses the grid whatever the schedule says.
func BuildDayView(in DayInput) DayView {
	view := DayView{Date: in.Date, Interval: in.Worker.Interval()}

	if off, ok := IsOffDay(in.Date, in.OffDays); ok {
		view.OffDay = off
		return view
	}

	date, err := time.Parse(models.DateLayout, in.Date)
	if err != nil {
		view.Closed = true
		return view
	}

	view.Schedule = models.ScheduleFor(in.Schedules, date.Weekday())
	labels := GridForSchedule(view.Schedule, view.Interval)
	if len(labels) == 0 {
		view.Closed = true
		return view
	}
	view.Misaligned = !Aligned(view.Schedule.StartTime, view.Interval)
	view.Appointments = in.Appointments

	view.Rows = make([]Row, 0, len(labels))
	for _, label := range labels {
		row := Row{
			Label:      label,
			Break:      IsBreakTime(label, view.Schedule),
			Past:       IsPastTimeSlot(in.Date, label, in.Now, in.Location),
			Busy:       Occupied(label, in.Appointments, view.Interval),
			Placements: PlaceAll(label, in.Appointments, view.Interval),
		}
		row.Clickable = !row.Break && !row.Past
		view.Rows = append(view.Rows, row)
	}
	return view
}
