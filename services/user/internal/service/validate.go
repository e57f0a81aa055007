package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-50 letters, digits or underscores", ErrValidation)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > 255 {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: password must contain an uppercase letter", ErrValidation)
	}
	if !digit {
		return fmt.Errorf("%w: password must contain a digit", ErrValidation)
	}
	return nil
}

func validateFullName(name *string) error {
	if name != nil && len([]rune(*name)) > 100 {
		return fmt.Errorf("%w: full name must be at most 100 characters", ErrValidation)
	}
	return nil
}
