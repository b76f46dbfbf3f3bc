package user

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/dprimakov/gatehouse/internal/apperror"
	"github.com/dprimakov/gatehouse/internal/session"
)

// contextKeyUser is the echo context key the auth middleware stores the
// loaded user under.
const contextKeyUser = "auth_user"

// CurrentUser returns the user loaded by RequireAuth, or nil on routes
// without it.
func CurrentUser(c echo.Context) *User {
	u, _ := c.Get(contextKeyUser).(*User)
	return u
}

// RequireAuth gates a route behind an authenticated, confirmed account.
// Anonymous visitors and sessions pointing at unconfirmed or vanished
// accounts are all bounced to the login page the same way; the original
// path rides along in next so login can return there.
func RequireAuth(service Service, sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := session.FromContext(c)
			if !sess.IsAuthenticated() {
				return redirectToLogin(c)
			}

			u, err := service.FindByID(c.Request().Context(), sess.UserID)
			switch {
			case err == nil && u.IsConfirmed:
				c.Set(contextKeyUser, u)
				return next(c)

			case err != nil && apperror.IsType(err, apperror.TypeUnavailable):
				return err

			default:
				// Stale session: the account is gone or lost its
				// confirmed status. Drop it.
				if derr := sessions.Destroy(c); derr != nil {
					slog.Error("destroying stale session", slog.Any("error", derr))
				}
				return redirectToLogin(c)
			}
		}
	}
}

func redirectToLogin(c echo.Context) error {
	target := "/user/login"
	if path := c.Request().URL.Path; path != "" && path != "/" {
		target += "?next=" + url.QueryEscape(path)
	}
	return c.Redirect(http.StatusSeeOther, target)
}
