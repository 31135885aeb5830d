package models

type Appointment struct {
	ID                    int64  `json:"id"`
	WorkerID              int64  `json:"worker_id"`
	ServiceID             *int64 `json:"service_id,omitempty"`
	ServiceName           string `json:"service_name,omitempty"`
	CustomServiceName     string `json:"custom_service_name,omitempty"`
	CustomServiceDuration int    `json:"custom_service_duration,omitempty"`
	Date                  string `json:"date"`       // 2006-01-02
	StartTime             string `json:"start_time"` // 15:04
	EndTime               string `json:"end_time"`   // 15:04
	CustomerName          string `json:"customer_name"`
	CustomerPhone         string `json:"customer_phone"`
	CustomerEmail         string `json:"customer_email,omitempty"`
}

// DurationMinutes prefers the booked interval and falls back to the custom duration.
func (a *Appointment) DurationMinutes() int {
	start, errStart := ParseClock(a.StartTime)
	end, errEnd := ParseClock(a.EndTime)
	if errStart == nil && errEnd == nil && end > start {
		return end - start
	}
	if a.CustomServiceDuration > 0 {
		return a.CustomServiceDuration
	}
	return 0
}

// Title is the service label shown in lists.
func (a *Appointment) Title() string {
	if a.ServiceName != "" {
		return a.ServiceName
	}
	if a.CustomServiceName != "" {
		return a.CustomServiceName
	}
	return "Appointment"
}

// DayAppointments groups the appointments of one date.
type DayAppointments struct {
	Date         string
	Appointments []Appointment
}
