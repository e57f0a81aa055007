package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_service/pkg/logging"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
	"github.com/Skotchmaster/user_service/services/user/internal/service"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

type BearerAuth struct {
	Resolver Resolver
}

func NewBearerAuth(r Resolver) *BearerAuth {
	return &BearerAuth{Resolver: r}
}

// Unauthorized builds a 401 carrying the bearer challenge.
func Unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "bearer_auth")

		token, ok := BearerToken(c.Request())
		if !ok {
			return Unauthorized(c, "missing bearer token")
		}

		user, err := m.Resolver.Resolve(ctx, token)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrDependencyUnavailable):
			l.Error("auth_failed", "status", 503, "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication backend unavailable")
		case errors.Is(err, service.ErrRevokedToken):
			l.Warn("auth_failed", "status", 401, "reason", "token revoked")
			return Unauthorized(c, "token has been revoked")
		case service.IsAuthError(err):
			l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
			return Unauthorized(c, "could not validate credentials")
		default:
			l.Error("auth_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}

		c.Set(userKey, user)
		c.Set(tokenKey, token)
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return Unauthorized(c, "not authenticated")
			}
			if !slices.Contains(roles, user.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok && u != nil
}

func CurrentToken(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}
