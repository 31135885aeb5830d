package slots

import (
	"time"

	"salonbook/internal/models"
)

// IsBreakTime reports whether slot starts inside the schedule break [break_start, break_end).
func IsBreakTime(slot string, schedule *models.WorkSchedule) bool {
	if schedule == nil || !schedule.HasBreak {
		return false
	}
	s, err := models.ParseClock(slot)
	if err != nil {
		return false
	}
	from, err := models.ParseClock(schedule.BreakStart)
	if err != nil {
		return false
	}
	to, err := models.ParseClock(schedule.BreakEnd)
	if err != nil {
		return false
	}
	return from <= s && s < to
}

// IsPastTimeSlot reports whether date+slot in loc is strictly before now.
func IsPastTimeSlot(date, slot string, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return false
	}
	m, err := models.ParseClock(slot)
	if err != nil {
		return false
	}
	// Wall clock, not midnight plus a duration: the two differ on DST change days.
	at := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc)
	return at.Before(now)
}

// IsOffDay returns the off-day whose inclusive range covers date.
func IsOffDay(date string, offDays []models.OffDay) (*models.OffDay, bool) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, false
	}
	// YYYY-MM-DD compares lexicographically in calendar order.
	for i := range offDays {
		if offDays[i].StartDate <= date && date <= offDays[i].EndDate {
			return &offDays[i], true
		}
	}
	return nil, false
}
