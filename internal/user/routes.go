package user

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dprimakov/gatehouse/internal/middleware"
	"github.com/dprimakov/gatehouse/internal/session"
)

// RegisterRoutes mounts the account routes. The form POSTs that create
// accounts or trigger credential checks carry a per-IP rate limit on top
// of the per-session email cooldown.
func RegisterRoutes(e *echo.Echo, h *Handler, service Service, sessions *session.Store) {
	g := e.Group("/user")

	g.GET("/register", h.RegisterForm)
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))

	g.GET("/login", h.LoginForm)
	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))

	g.GET("/logout", h.Logout, RequireAuth(service, sessions))

	g.GET("/confirm_email", h.ConfirmEmailInfo)
	g.POST("/confirm_email", h.ResendConfirmation)
	g.GET("/confirm_email/:token", h.ConfirmEmailToken)
	g.POST("/confirm_email/:token", h.ConfirmEmailToken)

	g.GET("/reset_password", h.ResetRequestForm)
	g.POST("/reset_password", h.ResetRequest)
	g.GET("/reset_password/:token", h.ResetPasswordForm)
	g.POST("/reset_password/:token", h.ResetPassword)

	e.GET("/profile", h.Profile, RequireAuth(service, sessions))
}
