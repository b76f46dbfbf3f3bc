package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dprimakov/gatehouse/internal/middleware"
	"github.com/dprimakov/gatehouse/internal/session"
	"github.com/dprimakov/gatehouse/internal/user"
	"github.com/dprimakov/gatehouse/internal/web"
)

// registerRoutes mounts every route the application serves.
func (a *App) registerRoutes(h *user.Handler, svc user.Service) {
	e := a.Echo

	e.GET("/", a.home)
	e.GET("/healthz", a.healthz)
	e.Static("/static", "static")

	user.RegisterRoutes(e, h, svc, a.Sessions)
}

// home renders the landing page for visitors and members alike.
func (a *App) home(c echo.Context) error {
	sess := session.FromContext(c)
	return middleware.Render(c, http.StatusOK, web.Home(web.PageData{
		Authenticated: sess.IsAuthenticated(),
		Username:      sess.Username,
		CSRF:          middleware.GetCSRFToken(c),
	}))
}

// healthz reports liveness of the process and its backing stores.
func (a *App) healthz(c echo.Context) error {
	ctx := c.Request().Context()

	if err := a.db.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "database": err.Error(),
		})
	}
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "redis": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
