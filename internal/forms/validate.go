package forms

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"salonbook/internal/models"
)

var (
	ErrRequired = errors.New("field is required")
)

const (
	maxNameLength     = 100
	minPasswordLength = 8
	minPhoneDigits    = 10
	maxPhoneDigits    = 15
)

// ValidateName trims the value and checks it is present and reasonably short.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// ValidatePhone strips formatting and returns digits with an optional leading '+'.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrRequired
	}

	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("unexpected character %q", r)
		}
	}

	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("must contain %d to %d digits", minPhoneDigits, maxPhoneDigits)
	}
	return normalized, nil
}

// ValidateEmail accepts a bare address; display names are rejected.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", errors.New("must be a valid email address")
	}
	return strings.ToLower(email), nil
}

// ValidateOptionalEmail allows an empty value.
func ValidateOptionalEmail(email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil
	}
	return ValidateEmail(email)
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrRequired
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("must be at least %d characters", minPasswordLength)
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return errors.New("must contain a letter and a digit")
	}
	return nil
}

func ValidatePasswordConfirmation(password, confirmation string) error {
	if confirmation == "" {
		return ErrRequired
	}
	if password != confirmation {
		return errors.New("passwords do not match")
	}
	return nil
}

// ValidateTimeRange checks both bounds parse and start < end.
func ValidateTimeRange(start, end string) error {
	from, err := models.ParseClock(start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	to, err := models.ParseClock(end)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if from >= to {
		return errors.New("start must be before end")
	}
	return nil
}

// ValidateSchedule checks the working window and that the break lies inside it.
func ValidateSchedule(s models.WorkSchedule) FieldErrors {
	fe := FieldErrors{}
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		fe.Add("day_of_week", "must be between 0 and 6")
	}
	if !s.IsWorking {
		return fe
	}
	if err := ValidateTimeRange(s.StartTime, s.EndTime); err != nil {
		fe.Add("start_time", err.Error())
		return fe
	}
	if !s.HasBreak {
		return fe
	}
	if err := ValidateTimeRange(s.BreakStart, s.BreakEnd); err != nil {
		fe.Add("break_start", err.Error())
		return fe
	}

	start, _ := models.ParseClock(s.StartTime)
	end, _ := models.ParseClock(s.EndTime)
	breakStart, _ := models.ParseClock(s.BreakStart)
	breakEnd, _ := models.ParseClock(s.BreakEnd)
	if breakStart < start || breakEnd > end {
		fe.Add("break_start", "break must be inside working hours")
	}
	return fe
}

// ValidateServiceDuration requires a positive multiple of the worker's slot granularity.
func ValidateServiceDuration(timeSlot, duration int) error {
	if duration <= 0 {
		return errors.New("duration must be positive")
	}
	granularity := abs(timeSlot)
	if granularity == 0 {
		return errors.New("worker has no time slot configured")
	}
	if duration%granularity != 0 {
		return fmt.Errorf("duration must be a multiple of %d minutes", granularity)
	}
	return nil
}

// ValidateTimeSlotAgainstServices checks a new slot size divides every existing service duration.
func ValidateTimeSlotAgainstServices(timeSlot int, services []models.Service) error {
	if timeSlot == 0 {
		return errors.New("time slot must not be zero")
	}
	var bad []string
	for _, s := range services {
		if ValidateServiceDuration(timeSlot, s.DurationMinutes) != nil {
			bad = append(bad, fmt.Sprintf("%s (%d min)", s.Name, s.DurationMinutes))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%d minutes does not divide: %s", abs(timeSlot), strings.Join(bad, ", "))
	}
	return nil
}

// ValidateDate parses YYYY-MM-DD.
func ValidateDate(date string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// ValidateOffDay checks an inclusive date range.
func ValidateOffDay(start, end string) FieldErrors {
	fe := FieldErrors{}
	from, err := ValidateDate(start)
	if err != nil {
		fe.Add("start_date", err.Error())
	}
	to, err := ValidateDate(end)
	if err != nil {
		fe.Add("end_date", err.Error())
	}
	if len(fe) == 0 && to.Before(from) {
		fe.Add("end_date", "must not be before start date")
	}
	return fe
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
