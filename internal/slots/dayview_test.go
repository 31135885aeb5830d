package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/models"
)

// 2025-03-10 is a Monday.
func mondayInput() DayInput {
	return DayInput{
		Date:   "2025-03-10",
		Worker: models.Worker{ID: 7, TimeSlot: 30},
		Schedules: []models.WorkSchedule{
			{DayOfWeek: int(time.Monday), IsWorking: true, StartTime: "09:00", EndTime: "12:00",
				HasBreak: true, BreakStart: "10:30", BreakEnd: "11:00"},
			{DayOfWeek: int(time.Sunday), IsWorking: false},
		},
		Appointments: []models.Appointment{
			{ID: 1, StartTime: "09:30", EndTime: "10:00", CustomerName: "Ann"},
		},
		Now:      time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC),
		Location: time.UTC,
	}
}

func TestBuildDayView(t *testing.T) {
	view := BuildDayView(mondayInput())

	require.Len(t, view.Rows, 6)
	assert.Equal(t, 30, view.Interval)
	assert.False(t, view.Closed)
	assert.False(t, view.Misaligned)
	assert.Nil(t, view.OffDay)

	first := view.Rows[0]
	assert.True(t, first.Past)
	assert.False(t, first.Clickable)

	second, ok := view.Row("09:30")
	require.True(t, ok)
	assert.False(t, second.Past)
	require.Len(t, second.Placements, 1)
	assert.Equal(t, int64(1), second.Placements[0].Appointment.ID)

	brk, ok := view.Row("10:30")
	require.True(t, ok)
	assert.True(t, brk.Break)
	assert.False(t, brk.Clickable)

	assert.Equal(t, []string{"10:00", "11:00", "11:30"}, view.FreeLabels())
}

func TestBuildDayViewOffDay(t *testing.T) {
	in := mondayInput()
	in.OffDays = []models.OffDay{{StartDate: "2025-03-08", EndDate: "2025-03-10", Reason: "sick"}}

	view := BuildDayView(in)
	require.NotNil(t, view.OffDay)
	assert.Equal(t, "sick", view.OffDay.Reason)
	assert.Empty(t, view.Rows)
}

func TestBuildDayViewClosed(t *testing.T) {
	in := mondayInput()
	in.Date = "2025-03-09" // Sunday

	view := BuildDayView(in)
	assert.True(t, view.Closed)
	assert.Empty(t, view.Rows)

	in.Date = "2025-03-11" // Tuesday, no schedule
	assert.True(t, BuildDayView(in).Closed)
}

func TestBuildDayViewMisaligned(t *testing.T) {
	in := mondayInput()
	in.Schedules[0].StartTime = "09:10"

	view := BuildDayView(in)
	assert.True(t, view.Misaligned)
	assert.Equal(t, "09:00", view.Rows[0].Label)
}

func TestBuildDayViewDynamicSlots(t *testing.T) {
	in := mondayInput()
	in.Worker.TimeSlot = -15

	view := BuildDayView(in)
	assert.Equal(t, 15, view.Interval)
	assert.Len(t, view.Rows, 12)
}

func TestBuildDayViewLongAppointmentBlocksLaterRows(t *testing.T) {
	in := mondayInput()
	in.Appointments = []models.Appointment{{ID: 2, StartTime: "09:30", EndTime: "10:30", CustomerName: "Kate"}}

	view := BuildDayView(in)
	cont, ok := view.Row("10:00")
	require.True(t, ok)
	assert.True(t, cont.Busy)
	assert.Empty(t, cont.Placements)
	assert.False(t, cont.Free())
	assert.Equal(t, []string{"11:00", "11:30"}, view.FreeLabels())
}

func TestDayViewFit(t *testing.T) {
	view := BuildDayView(mondayInput())

	tests := []struct {
		start    string
		duration int
		want     Fit
	}{
		{"10:00", 30, Fits},
		{"10:00", 0, Fits},
		{"10:00", 45, FitBreak},
		{"09:00", 60, FitBusy},
		{"11:30", 30, Fits},
		{"11:30", 45, FitAfterHours},
		{"bad", 30, FitAfterHours},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, view.Fit(tt.start, tt.duration), "%s+%d", tt.start, tt.duration)
	}

	closed := DayView{Interval: 30}
	assert.Equal(t, FitAfterHours, closed.Fit("10:00", 30))
}
