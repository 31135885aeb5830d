package models

type Worker struct {
	ID                int64  `json:"id" yaml:"id"`
	SalonID           int64  `json:"salon_id" yaml:"salon_id"`
	Name              string `json:"name" yaml:"name"`
	Email             string `json:"email,omitempty" yaml:"email"`
	Phone             string `json:"phone,omitempty" yaml:"phone"`
	TimeSlot          int    `json:"time_slot" yaml:"time_slot"`
	BookingWindowDays int    `json:"booking_window" yaml:"booking_window"`
	IsActive          bool   `json:"is_active" yaml:"is_active"`
}

// Interval is the slot granularity in minutes regardless of the slot mode.
func (w *Worker) Interval() int {
	if w.TimeSlot < 0 {
		return -w.TimeSlot
	}
	return w.TimeSlot
}

// DynamicSlots reports whether slots are sized per service duration.
func (w *Worker) DynamicSlots() bool {
	return w.TimeSlot < 0
}

type Service struct {
	ID              int64   `json:"id"`
	WorkerID        int64   `json:"worker_id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration"`
	Price           float64 `json:"price"`
	Description     string  `json:"description,omitempty"`
}

type Salon struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Workers []Worker `json:"workers,omitempty"`
}
