package service

import (
	"errors"

	"github.com/Skotchmaster/user_service/pkg/tokens"
)

var (
	// ErrInvalidCredentials never says whether the user or the password was wrong.
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrInvalidToken          = tokens.ErrInvalidToken
	ErrRevokedToken          = errors.New("token has been revoked")
	ErrUserNotFound          = errors.New("user not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("user already exist")
)

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrUserNotFound)
}
