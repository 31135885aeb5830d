// Package slots derives the worker day grid from already-fetched data.
package slots

import (
	"salonbook/internal/models"
)

// BuildGrid returns the slot labels of a working window. The first label is start
// rounded down to a multiple of interval; labels are emitted while they are before end.
func BuildGrid(start, end string, interval int) []string {
	if interval <= 0 {
		return nil
	}
	from, err := models.ParseClock(start)
	if err != nil {
		return nil
	}
	to, err := models.ParseClock(end)
	if err != nil {
		return nil
	}

	from -= from % interval
	if from >= to {
		return nil
	}

	labels := make([]string, 0, (to-from+interval-1)/interval)
	for current := from; current < to; current += interval {
		labels = append(labels, models.FormatClock(current))
	}
	return labels
}

// GridForSchedule builds the grid of a weekday schedule. Absent or non-working schedules yield nothing.
func GridForSchedule(schedule *models.WorkSchedule, interval int) []string {
	if schedule == nil || !schedule.IsWorking {
		return nil
	}
	return BuildGrid(schedule.StartTime, schedule.EndTime, interval)
}

// Aligned reports whether start already sits on an interval boundary.
func Aligned(start string, interval int) bool {
	if interval <= 0 {
		return true
	}
	m, err := models.ParseClock(start)
	if err != nil {
		return false
	}
	return m%interval == 0
}
