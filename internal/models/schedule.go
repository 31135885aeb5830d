package models

import "time"

// WorkSchedule is one weekday of a worker's week; DayOfWeek follows time.Weekday.
type WorkSchedule struct {
	ID         int64  `json:"id,omitempty"`
	WorkerID   int64  `json:"worker_id"`
	DayOfWeek  int    `json:"day_of_week"`
	IsWorking  bool   `json:"is_working"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	HasBreak   bool   `json:"has_break"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

// Weekday returns the schedule day as time.Weekday.
func (s *WorkSchedule) Weekday() time.Weekday {
	return time.Weekday(s.DayOfWeek)
}

// ScheduleFor picks the schedule of the given weekday.
func ScheduleFor(schedules []WorkSchedule, day time.Weekday) *WorkSchedule {
	for i := range schedules {
		if schedules[i].DayOfWeek == int(day) {
			return &schedules[i]
		}
	}
	return nil
}

type OffDay struct {
	ID        int64  `json:"id"`
	WorkerID  int64  `json:"worker_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

type AvailableSlots struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}
