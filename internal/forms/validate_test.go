package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/models"
)

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.Err())

	fe.Add("phone", "bad")
	fe.Add("phone", "short")
	fe.Merge(FieldErrors{"email": {"taken"}})

	assert.True(t, fe.Has("phone"))
	assert.False(t, fe.Has("name"))
	assert.Equal(t, "bad", fe.First("phone"))
	assert.Equal(t, "", fe.First("name"))
	assert.Equal(t, []string{"email", "phone"}, fe.Fields())

	err := fe.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone: bad; short")
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-4567", "+15551234567", false},
		{"89161234567", "89161234567", false},
		{"555.123.4567", "5551234567", false},
		{"12345", "", true},
		{"555-12a-4567", "", true},
		{"1+5551234567", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidatePhone(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail(" Ann@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got)

	for _, bad := range []string{"", "ann", "ann@", "Ann <ann@example.com>", "ann@localhost"} {
		_, err := ValidateEmail(bad)
		assert.Error(t, err, bad)
	}

	got, err = ValidateOptionalEmail("  ")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Ann Lee ")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got)

	_, err = ValidateName("   ")
	assert.ErrorIs(t, err, ErrRequired)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret123"))
	assert.ErrorIs(t, ValidatePassword(""), ErrRequired)
	assert.Error(t, ValidatePassword("abc1"))
	assert.Error(t, ValidatePassword("abcdefghij"))
	assert.Error(t, ValidatePassword("1234567890"))

	assert.NoError(t, ValidatePasswordConfirmation("secret123", "secret123"))
	assert.Error(t, ValidatePasswordConfirmation("secret123", "secret124"))
	assert.ErrorIs(t, ValidatePasswordConfirmation("secret123", ""), ErrRequired)
}

func TestValidateSchedule(t *testing.T) {
	ok := models.WorkSchedule{DayOfWeek: 1, IsWorking: true, StartTime: "09:00", EndTime: "18:00",
		HasBreak: true, BreakStart: "13:00", BreakEnd: "14:00"}
	assert.Empty(t, ValidateSchedule(ok).Fields())

	off := models.WorkSchedule{DayOfWeek: 0, IsWorking: false}
	assert.Empty(t, ValidateSchedule(off).Fields())

	inverted := ok
	inverted.EndTime = "08:00"
	assert.True(t, ValidateSchedule(inverted).Has("start_time"))

	outside := ok
	outside.BreakEnd = "19:00"
	assert.True(t, ValidateSchedule(outside).Has("break_start"))

	badDay := ok
	badDay.DayOfWeek = 7
	assert.True(t, ValidateSchedule(badDay).Has("day_of_week"))
}

func TestValidateServiceDuration(t *testing.T) {
	assert.NoError(t, ValidateServiceDuration(30, 60))
	assert.NoError(t, ValidateServiceDuration(-15, 45))
	assert.Error(t, ValidateServiceDuration(30, 45))
	assert.Error(t, ValidateServiceDuration(30, 0))
	assert.Error(t, ValidateServiceDuration(0, 30))
}

func TestValidateTimeSlotAgainstServices(t *testing.T) {
	services := []models.Service{
		{Name: "Cut", DurationMinutes: 30},
		{Name: "Color", DurationMinutes: 90},
	}
	assert.NoError(t, ValidateTimeSlotAgainstServices(30, services))
	assert.NoError(t, ValidateTimeSlotAgainstServices(-15, services))

	err := ValidateTimeSlotAgainstServices(60, services)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cut (30 min)")
	assert.Contains(t, err.Error(), "Color (90 min)")

	assert.Error(t, ValidateTimeSlotAgainstServices(0, nil))
}

func TestValidateOffDay(t *testing.T) {
	assert.Empty(t, ValidateOffDay("2025-03-10", "2025-03-10").Fields())
	assert.Empty(t, ValidateOffDay("2025-03-10", "2025-03-12").Fields())
	assert.True(t, ValidateOffDay("2025-03-12", "2025-03-10").Has("end_date"))
	assert.True(t, ValidateOffDay("10.03.2025", "2025-03-10").Has("start_date"))
}
