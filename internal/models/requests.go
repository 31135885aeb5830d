package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	SalonName            string `json:"salon_name"`
	SalonAddress         string `json:"salon_address,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type BookingRequest struct {
	WorkerID      int64  `json:"worker_id"`
	ServiceID     int64  `json:"service_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type CreateAppointmentRequest struct {
	WorkerID              int64  `json:"worker_id"`
	ServiceID             *int64 `json:"service_id,omitempty"`
	CustomServiceName     string `json:"custom_service_name,omitempty"`
	CustomServiceDuration int    `json:"custom_service_duration,omitempty"`
	Date                  string `json:"date"`
	StartTime             string `json:"start_time"`
	CustomerName          string `json:"customer_name"`
	CustomerPhone         string `json:"customer_phone"`
	CustomerEmail         string `json:"customer_email,omitempty"`
}

type OffDayRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}
