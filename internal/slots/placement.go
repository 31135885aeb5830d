package slots

import (
	"salonbook/internal/models"
)

// Placement is an appointment laid out inside one grid row.
type Placement struct {
	Appointment models.Appointment
	HeightPx    float64
	OffsetPct   float64
	Overlaps    bool
}

// BaseHeight is the pixel height of one row for the given interval.
func BaseHeight(interval int) float64 {
	switch {
	case interval <= 15:
		return 32
	case interval <= 30:
		return 40
	case interval <= 60:
		return 48
	default:
		return 60
	}
}

// Contains reports whether an appointment starting at apptStart belongs to slot.
func Contains(slot, apptStart string, interval int) bool {
	if interval <= 0 {
		return false
	}
	s, err := models.ParseClock(slot)
	if err != nil {
		return false
	}
	a, err := models.ParseClock(apptStart)
	if err != nil {
		return false
	}
	return s <= a && a < s+interval
}

// Place computes the height and vertical offset of appt inside slot.
func Place(slot string, appt models.Appointment, interval int) Placement {
	p := Placement{Appointment: appt}
	if interval <= 0 {
		return p
	}

	p.HeightPx = BaseHeight(interval) * float64(appt.DurationMinutes()) / float64(interval)

	s, errSlot := models.ParseClock(slot)
	a, errAppt := models.ParseClock(appt.StartTime)
	if errSlot != nil || errAppt != nil {
		return p
	}
	p.OffsetPct = clamp(float64(a-s)/float64(interval)*100, 0, 100)
	return p
}

// PlaceAll places every appointment of the day that starts inside slot.
// Appointments whose intervals intersect another one are flagged as overlapping.
func PlaceAll(slot string, appts []models.Appointment, interval int) []Placement {
	var placements []Placement
	for i := range appts {
		if !Contains(slot, appts[i].StartTime, interval) {
			continue
		}
		p := Place(slot, appts[i], interval)
		p.Overlaps = overlapsAny(i, appts)
		placements = append(placements, p)
	}
	return placements
}

// Occupied reports whether any appointment overlaps the row window [slot, slot+interval),
// including appointments that started in an earlier row.
func Occupied(slot string, appts []models.Appointment, interval int) bool {
	if interval <= 0 {
		return false
	}
	s, err := models.ParseClock(slot)
	if err != nil {
		return false
	}
	for i := range appts {
		if a, e, ok := span(appts[i]); ok && a < s+interval && s < e {
			return true
		}
	}
	return false
}

func overlapsAny(idx int, appts []models.Appointment) bool {
	start, end, ok := span(appts[idx])
	if !ok {
		return false
	}
	for j := range appts {
		if j == idx {
			continue
		}
		s, e, ok := span(appts[j])
		if !ok {
			continue
		}
		if start < e && s < end {
			return true
		}
	}
	return false
}

func span(a models.Appointment) (int, int, bool) {
	start, err := models.ParseClock(a.StartTime)
	if err != nil {
		return 0, 0, false
	}
	d := a.DurationMinutes()
	if d <= 0 {
		return 0, 0, false
	}
	return start, start + d, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
