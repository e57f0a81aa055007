package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_service/pkg/metrics"
	"github.com/Skotchmaster/user_service/services/user/internal/middleware"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
)

type Deps struct {
	UserHandler *UserHTTP
	Metrics     *metrics.Metrics
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.UserHandler.Ready)
	e.GET("/health", d.UserHandler.Health)
	e.GET("/healthcheck", d.UserHandler.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authMw := middleware.NewBearerAuth(d.UserHandler.Svc)

	e.POST("/token", d.UserHandler.Token)
	e.POST("/users", d.UserHandler.Register)

	private := e.Group("")
	private.Use(authMw.RequireAuth)

	private.GET("/users/me", d.UserHandler.Me)
	private.PATCH("/users/me", d.UserHandler.UpdateMe)
	private.POST("/logout", d.UserHandler.Logout)
	private.GET("/users", d.UserHandler.List, middleware.RequireRole(models.RoleAdmin))
}
