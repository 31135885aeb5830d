package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"9:05", 545, false},
		{"18:00:00", 1080, false},
		{"24:00", 1440, false},
		{"24:30", 0, true},
		{"10:7", 0, true},
		{"xx:00", 0, true},
		{"1000", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "23:59", FormatClock(1439))
}

func TestAppointmentDurationMinutes(t *testing.T) {
	a := Appointment{StartTime: "10:00", EndTime: "11:15"}
	assert.Equal(t, 75, a.DurationMinutes())

	custom := Appointment{StartTime: "10:00", EndTime: "10:7", CustomServiceDuration: 20}
	assert.Equal(t, 20, custom.DurationMinutes(), "malformed end falls back to the custom duration")
}
