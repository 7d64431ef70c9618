package customer

import (
	"regexp"
	"strings"

	"dddkit/domain/shared"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email Value object - immutable, represents email address
type Email struct {
	value string
}

// NewEmail normalizes and validates an address
func NewEmail(email string) (Email, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return Email{}, shared.NewValidationError("Customer", "email", ErrInvalidEmail.Error())
	}

	return Email{value: email}, nil
}

func (e Email) Value() string { return e.value }

func (e Email) Equals(other Email) bool { return e.value == other.value }

func (e Email) String() string { return e.value }

var _ shared.ValueObject[Email] = Email{}
