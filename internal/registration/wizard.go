// Package registration is the owner sign-up wizard.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"salonbook/internal/apiclient"
	"salonbook/internal/forms"
	"salonbook/internal/models"
)

type Step string

const (
	StepName         Step = "name"
	StepEmail        Step = "email"
	StepPhone        Step = "phone"
	StepPassword     Step = "password"
	StepConfirmation Step = "password_confirmation"
	StepSalonName    Step = "salon_name"
	StepSalonAddress Step = "salon_address"
	StepConfirm      Step = "confirm"
	StepDone         Step = "done"
)

var ErrInvalidStep = errors.New("registration step out of order")

var order = []Step{StepName, StepEmail, StepPhone, StepPassword, StepConfirmation, StepSalonName, StepSalonAddress, StepConfirm, StepDone}

var fieldSteps = map[string]Step{
	"name":                  StepName,
	"email":                 StepEmail,
	"phone":                 StepPhone,
	"password":              StepPassword,
	"password_confirmation": StepConfirmation,
	"salon_name":            StepSalonName,
	"salon_address":         StepSalonAddress,
}

func index(s Step) int {
	for i, st := range order {
		if st == s {
			return i
		}
	}
	return -1
}

// Registrar creates the account and opens its session.
type Registrar interface {
	Register(ctx context.Context, userID int64, req models.RegisterRequest) (*models.Session, error)
}

// Wizard is the sign-up draft. Passwords live only in the chat state and are
// cleared once the account exists.
type Wizard struct {
	Step                 Step              `json:"step"`
	Name                 string            `json:"name,omitempty"`
	Email                string            `json:"email,omitempty"`
	Phone                string            `json:"phone,omitempty"`
	Password             string            `json:"password,omitempty"`
	PasswordConfirmation string            `json:"password_confirmation,omitempty"`
	SalonName            string            `json:"salon_name,omitempty"`
	SalonAddress         string            `json:"salon_address,omitempty"`
	Errors               forms.FieldErrors `json:"errors,omitempty"`
}

func New() *Wizard {
	return &Wizard{Step: StepName, Errors: forms.FieldErrors{}}
}

func Decode(raw json.RawMessage) (*Wizard, error) {
	var w Wizard
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode registration wizard: %w", err)
	}
	if index(w.Step) < 0 {
		return nil, fmt.Errorf("decode registration wizard: unknown step %q", w.Step)
	}
	if w.Errors == nil {
		w.Errors = forms.FieldErrors{}
	}
	return &w, nil
}

func (w *Wizard) Encode() (json.RawMessage, error) {
	return json.Marshal(w)
}

// Input applies the text the user typed on the current step and advances.
func (w *Wizard) Input(text string) error {
	var (
		field = w.field()
		err   error
	)
	switch w.Step {
	case StepName:
		w.Name, err = forms.ValidateName(text)
	case StepEmail:
		w.Email, err = forms.ValidateEmail(text)
	case StepPhone:
		w.Phone, err = forms.ValidatePhone(text)
	case StepPassword:
		if err = forms.ValidatePassword(text); err == nil {
			w.Password = text
			w.PasswordConfirmation = ""
		}
	case StepConfirmation:
		if err = forms.ValidatePasswordConfirmation(w.Password, text); err == nil {
			w.PasswordConfirmation = text
		}
	case StepSalonName:
		w.SalonName, err = forms.ValidateName(text)
	case StepSalonAddress:
		w.SalonAddress = strings.TrimSpace(text)
	default:
		return fmt.Errorf("%w: no input expected on %s", ErrInvalidStep, w.Step)
	}
	if err != nil {
		delete(w.Errors, field)
		w.Errors.Add(field, err.Error())
		return err
	}
	delete(w.Errors, field)
	w.Step = order[index(w.Step)+1]
	return nil
}

// field is the API field edited on the current step.
func (w *Wizard) field() string {
	for f, s := range fieldSteps {
		if s == w.Step {
			return f
		}
	}
	return ""
}

// Back moves to the previous step. Leaving the confirmation step drops the typed password.
func (w *Wizard) Back() error {
	i := index(w.Step)
	if i <= 0 || w.Step == StepDone {
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidStep, w.Step)
	}
	w.Step = order[i-1]
	if w.Step == StepPassword {
		w.Password, w.PasswordConfirmation = "", ""
	}
	return nil
}

func (w *Wizard) Request() models.RegisterRequest {
	return models.RegisterRequest{
		Name:                 w.Name,
		Email:                w.Email,
		Phone:                w.Phone,
		Password:             w.Password,
		PasswordConfirmation: w.PasswordConfirmation,
		SalonName:            w.SalonName,
		SalonAddress:         w.SalonAddress,
	}
}

// Submit registers the owner. Validation errors move the wizard to the earliest failing step.
func (w *Wizard) Submit(ctx context.Context, reg Registrar, userID int64) (*models.Session, error) {
	if w.Step != StepConfirm {
		return nil, fmt.Errorf("%w: submit on %s", ErrInvalidStep, w.Step)
	}
	sess, err := reg.Register(ctx, userID, w.Request())
	if err == nil {
		w.Step = StepDone
		w.Password, w.PasswordConfirmation = "", ""
		w.Errors = forms.FieldErrors{}
		return sess, nil
	}

	if errors.Is(err, apiclient.ErrValidation) {
		w.Errors = forms.FieldErrors{}
		w.Errors.Merge(apiclient.FieldErrors(err))
		best := -1
		for _, f := range w.Errors.Fields() {
			if s, ok := fieldSteps[f]; ok {
				if i := index(s); best < 0 || i < best {
					best = i
				}
			}
		}
		if best >= 0 {
			w.Step = order[best]
			// the confirmation must be retyped together with the password
			if w.Step == StepPassword {
				w.Password, w.PasswordConfirmation = "", ""
			}
		}
	}
	return nil, err
}
