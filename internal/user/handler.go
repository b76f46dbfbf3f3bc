package user

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dprimakov/gatehouse/internal/apperror"
	"github.com/dprimakov/gatehouse/internal/middleware"
	"github.com/dprimakov/gatehouse/internal/session"
	"github.com/dprimakov/gatehouse/internal/web"
)

// Handler handles the /user routes. Handlers are thin: bind the form, call
// the service, persist the session, render or redirect. No business logic
// lives here.
type Handler struct {
	service  Service
	sessions *session.Store
}

// NewHandler creates a user handler.
func NewHandler(service Service, sessions *session.Store) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// pageData seeds a PageData with the common layout state.
func (h *Handler) pageData(c echo.Context) web.PageData {
	sess := session.FromContext(c)
	return web.PageData{
		Authenticated: sess.IsAuthenticated(),
		Username:      sess.Username,
		CSRF:          middleware.GetCSRFToken(c),
	}
}

// saveSession persists session mutations, logging rather than failing the
// request when Redis misbehaves: the page outcome was already decided.
func (h *Handler) saveSession(c echo.Context, sess *session.Data) {
	if err := h.sessions.Save(c, sess); err != nil {
		slog.Error("saving session", slog.Any("error", err))
	}
}

// --- Registration ---

// RegisterForm renders the registration page (GET /user/register).
func (h *Handler) RegisterForm(c echo.Context) error {
	if session.FromContext(c).IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, web.Register(h.pageData(c)))
}

// Register processes the registration form (POST /user/register).
// Success redirects to the confirm-email info page; the account is NOT
// logged in until the email is confirmed.
func (h *Handler) Register(c echo.Context) error {
	if session.FromContext(c).IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("invalid form submission")
	}

	d := h.pageData(c)
	d.FormUsername = req.Username
	d.FormEmail = req.Email

	if msg := validateRegisterRequest(&req); msg != "" {
		d.Error = msg
		return middleware.Render(c, http.StatusOK, web.Register(d))
	}

	sess := session.FromContext(c)
	_, err := h.service.Register(c.Request().Context(), sess, RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		d.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.Register(d))
	}

	h.saveSession(c, sess)
	return c.Redirect(http.StatusSeeOther, "/user/confirm_email")
}

// --- Login / logout ---

// LoginForm renders the login page (GET /user/login).
func (h *Handler) LoginForm(c echo.Context) error {
	sess := session.FromContext(c)
	if sess.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	d := h.pageData(c)
	d.Next = sanitizeNext(c.QueryParam("next"))

	switch {
	case c.QueryParam("reset") == "success":
		d.Notice = "Your password has been updated. You can now sign in."
	case c.QueryParam("confirmed") == "1":
		d.Notice = "Your email is confirmed. You can now sign in."
	case sess.PasswordResetRequested:
		// One-shot notice after a reset request.
		d.Notice = "A password reset link has been sent to your email."
		sess.PasswordResetRequested = false
		h.saveSession(c, sess)
	}

	return middleware.Render(c, http.StatusOK, web.Login(d))
}

// Login processes the login form (POST /user/login). A confirmed account
// gets a fresh authenticated session; an unconfirmed one is routed to the
// confirmation flow; anything else re-renders with a generic message.
func (h *Handler) Login(c echo.Context) error {
	sess := session.FromContext(c)
	if sess.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("invalid form submission")
	}

	d := h.pageData(c)
	d.FormEmail = req.Email
	d.Next = sanitizeNext(c.QueryParam("next"))

	if req.Email == "" || req.Password == "" {
		d.Error = "email and password are required"
		return middleware.Render(c, http.StatusOK, web.Login(d))
	}

	u, err := h.service.Login(c.Request().Context(), sess, LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		// Fresh token for the authenticated session; pending markers
		// from the confirmation/reset flows do not carry over.
		if err := h.sessions.Renew(c, &session.Data{
			UserID:   u.ID,
			Username: u.Username,
		}); err != nil {
			return apperror.NewInternal(err)
		}
		target := d.Next
		if target == "" {
			target = "/"
		}
		return c.Redirect(http.StatusSeeOther, target)

	case errors.Is(err, ErrNotConfirmed):
		h.saveSession(c, sess)
		return c.Redirect(http.StatusSeeOther, "/user/confirm_email")

	default:
		d.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.Login(d))
	}
}

// Logout clears the session (GET /user/logout, authenticated only).
func (h *Handler) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(c); err != nil {
		slog.Error("destroying session", slog.Any("error", err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// --- Email confirmation ---

// ConfirmEmailInfo renders the "check your inbox" page with the resend
// button (GET /user/confirm_email).
func (h *Handler) ConfirmEmailInfo(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, web.ConfirmEmail(h.pageData(c)))
}

// ResendConfirmation re-sends the confirmation email for the pending
// session identity (POST /user/confirm_email). Throttled to one send per
// cooldown window per session.
func (h *Handler) ResendConfirmation(c echo.Context) error {
	sess := session.FromContext(c)
	d := h.pageData(c)

	err := h.service.ResendConfirmation(c.Request().Context(), sess)

	var throttled *ThrottledError
	switch {
	case err == nil:
		h.saveSession(c, sess)
		d.Notice = "The confirmation email has been sent again."
	case errors.As(err, &throttled):
		d.Notice = "Please wait a moment before requesting another email."
	case apperror.IsType(err, apperror.TypeNotFound):
		d.Error = "User not found. Please register first."
	default:
		d.Error = apperror.SafeMessage(err)
	}

	return middleware.Render(c, http.StatusOK, web.ConfirmEmail(d))
}

// ConfirmEmailToken consumes a confirmation token from an emailed link
// (GET/POST /user/confirm_email/:token). Confirmation never logs the user
// in; they are sent to the login page.
func (h *Handler) ConfirmEmailToken(c echo.Context) error {
	_, _, err := h.service.ConfirmEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		d := h.pageData(c)
		d.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.ConfirmEmail(d))
	}

	// Already-confirmed replays land here too; the outcome is the same.
	return c.Redirect(http.StatusSeeOther, "/user/login?confirmed=1")
}

// --- Password reset ---

// ResetRequestForm renders the reset request page
// (GET /user/reset_password), pre-filling the email remembered in the
// session.
func (h *Handler) ResetRequestForm(c echo.Context) error {
	d := h.pageData(c)
	d.FormEmail = session.FromContext(c).Email
	return middleware.Render(c, http.StatusOK, web.ResetRequest(d))
}

// ResetRequest processes the reset request form
// (POST /user/reset_password). Throttled per session.
func (h *Handler) ResetRequest(c echo.Context) error {
	email := c.FormValue("email")

	d := h.pageData(c)
	d.FormEmail = email

	if msg := validateEmail(email); msg != "" {
		d.Error = msg
		return middleware.Render(c, http.StatusOK, web.ResetRequest(d))
	}

	sess := session.FromContext(c)
	err := h.service.RequestPasswordReset(c.Request().Context(), sess, email)

	var throttled *ThrottledError
	switch {
	case err == nil:
		h.saveSession(c, sess)
		return c.Redirect(http.StatusSeeOther, "/user/login")
	case errors.As(err, &throttled):
		h.saveSession(c, sess)
		d.Notice = "Please wait a moment before requesting another email."
	case apperror.IsType(err, apperror.TypeNotFound):
		h.saveSession(c, sess)
		d.Error = "No account with this email address was found."
	default:
		d.Error = apperror.SafeMessage(err)
	}

	return middleware.Render(c, http.StatusOK, web.ResetRequest(d))
}

// ResetPasswordForm vets the token and renders the new-password form
// (GET /user/reset_password/:token). An invalid or expired link falls back
// to the request form so the user can get a fresh one.
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	tok := c.Param("token")

	if _, err := h.service.VerifyResetToken(c.Request().Context(), tok); err != nil {
		d := h.pageData(c)
		d.FormEmail = session.FromContext(c).Email
		d.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.ResetRequest(d))
	}

	d := h.pageData(c)
	d.Token = tok
	return middleware.Render(c, http.StatusOK, web.ResetPassword(d))
}

// ResetPassword consumes the token and sets the new password
// (POST /user/reset_password/:token).
func (h *Handler) ResetPassword(c echo.Context) error {
	tok := c.Param("token")
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	d := h.pageData(c)
	d.Token = tok

	if msg := validatePassword(password); msg != "" {
		d.Error = msg
		return middleware.Render(c, http.StatusOK, web.ResetPassword(d))
	}
	if password != confirm {
		d.Error = "passwords do not match"
		return middleware.Render(c, http.StatusOK, web.ResetPassword(d))
	}

	sess := session.FromContext(c)
	err := h.service.ResetPassword(c.Request().Context(), sess, tok, password)
	switch {
	case err == nil:
		h.saveSession(c, sess)
		return c.Redirect(http.StatusSeeOther, "/user/login?reset=success")
	case apperror.IsType(err, apperror.TypeTokenInvalid):
		rd := h.pageData(c)
		rd.FormEmail = sess.Email
		rd.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.ResetRequest(rd))
	default:
		d.Error = apperror.SafeMessage(err)
		return middleware.Render(c, http.StatusOK, web.ResetPassword(d))
	}
}

// --- Protected pages ---

// Profile renders the placeholder protected page (GET /profile).
func (h *Handler) Profile(c echo.Context) error {
	u := CurrentUser(c)
	if u == nil {
		return apperror.NewInternal(errors.New("auth middleware not applied"))
	}

	d := h.pageData(c)
	d.FormUsername = u.Username
	d.FormEmail = u.Email
	return middleware.Render(c, http.StatusOK, web.Profile(d))
}

// sanitizeNext keeps the post-login redirect target on this site: only
// rooted relative paths pass, so an attacker cannot bounce users to a
// foreign origin through the next parameter.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return ""
	}
	// Browsers treat a backslash after the slash like a second slash, so
	// "/\evil.example.com" is as much an off-site jump as "//".
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}
