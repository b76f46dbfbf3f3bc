package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

// csrfTokenLength is the number of random bytes in a CSRF token.
const csrfTokenLength = 32

// csrfCookieName is the cookie that stores the CSRF token.
const csrfCookieName = "gatehouse_csrf"

// csrfFormField is the hidden form field carrying the token back.
const csrfFormField = "csrf_token"

// contextKeyCSRF is the Echo context key holding the current token.
const contextKeyCSRF = "csrf_token"

// CSRF returns middleware implementing the double-submit cookie pattern on
// all state-changing requests (POST, PUT, PATCH, DELETE).
//
//  1. On every request, if no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, the csrf_token form field must equal the cookie.
//  3. Mismatch or absence is rejected with 403 Forbidden.
//
// Templates read the token via GetCSRFToken and embed it as a hidden field
// in every form.
func CSRF(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			cookieToken := ""
			cookie, err := req.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}

				c.SetCookie(&http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				cookieToken = token
			} else {
				cookieToken = cookie.Value
			}

			// Store the token in context for templates to embed in forms.
			c.Set(contextKeyCSRF, cookieToken)

			// Safe methods are never validated.
			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.FormValue(csrfFormField)

			// Constant-time comparison prevents deducing the token
			// byte-by-byte through a timing side channel.
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken generates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the Echo context for use in
// form templates.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(contextKeyCSRF).(string); ok {
		return token
	}
	return ""
}
