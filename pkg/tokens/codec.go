package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// NewCodec accepts HMAC algorithms only (HS256, HS384, HS512).
func NewCodec(secret []byte, algorithm string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("tokens: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("tokens: algorithm %q is not HMAC", algorithm)
	}
	return &Codec{secret: secret, method: method, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) Algorithm() string { return c.method.Alg() }

func (c *Codec) Issue(claims Claims, kind Kind, ttl time.Duration) (string, time.Time, error) {
	if claims.Subject == "" {
		return "", time.Time{}, errors.New("tokens: subject is required")
	}
	if !kind.Valid() {
		return "", time.Time{}, fmt.Errorf("tokens: unknown kind %q", kind)
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("tokens: ttl must be positive")
	}

	now := c.now()
	exp := now.Add(ttl)

	claims.Kind = kind
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	claims.ID = uuid.NewString()

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: sign: %w", err)
	}
	return signed, exp, nil
}

// Decode verifies signature and expiry. Every failure wraps ErrInvalidToken.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected sign method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if err := claims.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &claims, nil
}

func (c *Codec) DecodeKind(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, kind, claims.Kind)
	}
	return claims, nil
}

// CreatePair issues an access and a refresh token sharing subject, role and
// scopes.
func (c *Codec) CreatePair(subject, role string, scopes []string, accessTTL, refreshTTL time.Duration) (*Pair, error) {
	base := Claims{
		Role:   role,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}

	access, accessExp, err := c.Issue(base, KindAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := c.Issue(base, KindRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// ExpiresAt reads the expiry of a validly signed token, even if that expiry
// is already in the past.
func (c *Codec) ExpiresAt(tokenStr string) (time.Time, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: token has no expiry", ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}
