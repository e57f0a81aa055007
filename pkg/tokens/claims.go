package tokens

import (
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Kind   Kind     `json:"type"`
	Role   string   `json:"role,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

func (c *Claims) validate() error {
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	if !c.Kind.Valid() {
		return errors.New("unknown token type")
	}
	if c.ExpiresAt == nil {
		return errors.New("token has no expiry")
	}
	return nil
}
