package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/models"
)

func appt(start, end string) models.Appointment {
	return models.Appointment{StartTime: start, EndTime: end, CustomerName: "Client"}
}

func TestBaseHeight(t *testing.T) {
	tests := []struct {
		interval int
		want     float64
	}{
		{5, 32}, {15, 32}, {20, 40}, {30, 40}, {45, 48}, {60, 48}, {90, 60}, {120, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseHeight(tt.interval), "interval %d", tt.interval)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("10:00", "10:00", 30))
	assert.True(t, Contains("10:00", "10:29", 30))
	assert.False(t, Contains("10:00", "10:30", 30))
	assert.False(t, Contains("10:00", "09:59", 30))
	assert.False(t, Contains("10:00", "10:00", 0))
	assert.False(t, Contains("bad", "10:00", 30))
}

func TestPlace(t *testing.T) {
	t.Run("aligned appointment", func(t *testing.T) {
		p := Place("10:00", appt("10:00", "10:30"), 30)
		assert.Equal(t, 0.0, p.OffsetPct)
		assert.Equal(t, BaseHeight(30), p.HeightPx)
	})

	t.Run("quarter into half hour", func(t *testing.T) {
		p := Place("10:00", appt("10:15", "10:30"), 30)
		assert.Equal(t, 50.0, p.OffsetPct)
		assert.Equal(t, BaseHeight(30)/2, p.HeightPx)
	})

	t.Run("long appointment spans rows", func(t *testing.T) {
		p := Place("10:00", appt("10:00", "11:30"), 30)
		assert.Equal(t, BaseHeight(30)*3, p.HeightPx)
	})

	t.Run("custom duration fallback", func(t *testing.T) {
		a := models.Appointment{StartTime: "10:00", CustomServiceDuration: 60}
		p := Place("10:00", a, 60)
		assert.Equal(t, BaseHeight(60), p.HeightPx)
	})

	t.Run("offset clamped", func(t *testing.T) {
		assert.Equal(t, 100.0, Place("10:00", appt("11:00", "11:30"), 30).OffsetPct)
		assert.Equal(t, 0.0, Place("10:00", appt("09:00", "09:30"), 30).OffsetPct)
	})
}

func TestPlaceAll(t *testing.T) {
	day := []models.Appointment{
		appt("09:00", "09:30"),
		appt("10:00", "10:45"),
		appt("10:15", "10:30"),
		appt("11:00", "11:30"),
	}

	got := PlaceAll("10:00", day, 30)
	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].OffsetPct)
	assert.Equal(t, 50.0, got[1].OffsetPct)
	assert.True(t, got[0].Overlaps)
	assert.True(t, got[1].Overlaps)

	single := PlaceAll("09:00", day, 30)
	require.Len(t, single, 1)
	assert.False(t, single[0].Overlaps)

	assert.Empty(t, PlaceAll("12:00", day, 30))
}

func TestOccupied(t *testing.T) {
	day := []models.Appointment{appt("10:00", "11:00")}

	assert.True(t, Occupied("10:00", day, 30))
	assert.True(t, Occupied("10:30", day, 30), "row inside a longer appointment")
	assert.False(t, Occupied("11:00", day, 30))
	assert.False(t, Occupied("09:30", day, 30))
	assert.False(t, Occupied("10:30", day, 0))
}
