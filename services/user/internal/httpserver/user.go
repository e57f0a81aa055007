package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_service/pkg/logging"
	"github.com/Skotchmaster/user_service/services/user/internal/middleware"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
	"github.com/Skotchmaster/user_service/services/user/internal/service"
	"github.com/Skotchmaster/user_service/services/user/internal/transport"
)

type UserHTTP struct {
	Svc         *service.AuthService
	ServiceName string
}

// Token exchanges credentials for an access/refresh pair.
func (h *UserHTTP) Token(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_token")

	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDependencyUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication backend unavailable")
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			return middleware.Unauthorized(c, "incorrect username or password")
		}
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
	})
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusCreated, transport.NewUserResponse(user))
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_list")

	var q transport.ListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		l.Warn("list_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if q.Limit <= 0 {
		q.Limit = service.DefaultListLimit
	}

	items, total, err := h.Svc.ListUsers(ctx, q.Offset, q.Limit)
	if err != nil {
		return h.httpError(c, err)
	}

	resp := transport.UserListResponse{
		Items: make([]transport.UserResponse, 0, len(items)),
		Total: total,
		Skip:  q.Offset,
		Limit: q.Limit,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.NewUserResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *UserHTTP) Me(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Unauthorized(c, "not authenticated")
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *UserHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Unauthorized(c, "not authenticated")
	}

	var req transport.UpdateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Role != nil && *req.Role != user.Role && user.Role != models.RoleAdmin {
		l.Warn("update_error", "status", 403, "reason", "role change requires admin")
		return echo.NewHTTPError(http.StatusForbidden, "only admins can change roles")
	}

	updated, err := h.Svc.UpdateUser(ctx, user.ID, service.UpdateInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(updated))
}

// Logout revokes the presented access token and, if given, the refresh token.
func (h *UserHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_logout")

	var req transport.LogoutRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			l.Warn("logout_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}

	if err := h.Svc.Revoke(ctx, middleware.CurrentToken(c)); err != nil {
		return h.httpError(c, err)
	}
	if req.RefreshToken != "" {
		if err := h.Svc.Revoke(ctx, req.RefreshToken); err != nil {
			return h.httpError(c, err)
		}
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *UserHTTP) Health(c echo.Context) error {
	rep := h.Svc.Health(c.Request().Context())
	resp := transport.HealthResponse{
		Status:   "healthy",
		Service:  h.ServiceName,
		Database: rep.Database,
		Cache:    rep.Cache,
	}
	if !rep.Healthy {
		resp.Status = "unhealthy"
		c.Response().Header().Set(echo.HeaderRetryAfter, "10")
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *UserHTTP) Ready(c echo.Context) error {
	if !h.Svc.Health(c.Request().Context()).Healthy {
		c.Response().Header().Set(echo.HeaderRetryAfter, "10")
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}

func (h *UserHTTP) httpError(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context())

	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "username or email already registered")
	case errors.Is(err, service.ErrDependencyUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, service.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case service.IsAuthError(err):
		return middleware.Unauthorized(c, "could not validate credentials")
	}
	l.Error("request_failed", "status", 500, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
