// Package app assembles the HTTP server: Echo instance, middleware chain,
// error handling, and route registration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dprimakov/gatehouse/internal/apperror"
	"github.com/dprimakov/gatehouse/internal/config"
	"github.com/dprimakov/gatehouse/internal/mailer"
	"github.com/dprimakov/gatehouse/internal/middleware"
	"github.com/dprimakov/gatehouse/internal/session"
	"github.com/dprimakov/gatehouse/internal/token"
	"github.com/dprimakov/gatehouse/internal/user"
	"github.com/dprimakov/gatehouse/internal/web"
)

// shutdownTimeout bounds how long Shutdown waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// App holds the wired application.
type App struct {
	Config   *config.Config
	Echo     *echo.Echo
	Sessions *session.Store

	db  *sql.DB
	rdb *redis.Client
}

// New wires the application from its backing services.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, nil)

	sessions := session.NewStore(rdb, cfg.Auth.SessionTTL, cfg.Cookie.Secure)

	e.Use(middleware.Recovery())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.SecurityHeaders())
	e.Use(sessions.Middleware())
	e.Use(middleware.CSRF(cfg.Cookie.Secure))

	e.HTTPErrorHandler = errorHandler

	a := &App{
		Config:   cfg,
		Echo:     e,
		Sessions: sessions,
		db:       db,
		rdb:      rdb,
	}

	tokens := token.NewService(cfg.Auth.SecretKey)
	sender, err := mailer.NewSender(cfg.Mail)
	if err != nil {
		return nil, err
	}
	dispatcher := mailer.NewDispatcher(sender, cfg.BaseURL, cfg.Mail.SendTimeout)

	repo := user.NewRepository(db)
	svc := user.NewService(repo, tokens, dispatcher, cfg.Auth.TokenMaxAge)
	handler := user.NewHandler(svc, sessions)

	a.registerRoutes(handler, svc)
	return a, nil
}

// Start runs the HTTP server until the context is cancelled or the
// listener fails.
func (a *App) Start(ctx context.Context) error {
	addr := ":" + strconv.Itoa(a.Config.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Echo.Start(addr)
	}()

	slog.Info("server listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		return a.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains in-flight requests with a bounded grace period.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Echo.Shutdown(ctx)
}

// errorHandler turns errors escaping the handlers into HTML responses.
// Unauthorized errors bounce to the login page; everything else renders
// the error page with a sanitized message.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := apperror.SafeCode(err)
	msg := apperror.SafeMessage(err)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if s, isStr := httpErr.Message.(string); isStr {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", code),
			slog.Any("error", err),
		)
	}

	if code == http.StatusUnauthorized {
		if rerr := c.Redirect(http.StatusSeeOther, "/user/login"); rerr != nil {
			slog.Error("redirecting to login", slog.Any("error", rerr))
		}
		return
	}

	if rerr := middleware.Render(c, code, web.Error(code, msg)); rerr != nil {
		slog.Error("rendering error page", slog.Any("error", rerr))
	}
}
