// Package web holds the server-rendered pages. Markup lives in embedded
// html/template files (a base layout plus one content template per page)
// and is exposed as templ components so handlers and the error handler can
// render everything through the same middleware.Render helper.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var files embed.FS

// page parses the shared layout together with a single content template.
// Every page gets its own template set so the "content" block never
// collides between pages.
func page(name string) *template.Template {
	return template.Must(template.ParseFS(files, "templates/layout.html", "templates/"+name))
}

var (
	homeTmpl          = page("home.html")
	registerTmpl      = page("register.html")
	loginTmpl         = page("login.html")
	resetRequestTmpl  = page("reset_request.html")
	resetPasswordTmpl = page("reset_password.html")
	confirmEmailTmpl  = page("confirm_email.html")
	profileTmpl       = page("profile.html")
	errorTmpl         = page("error.html")
)

// PageData carries everything the layout and content templates read.
// Error and Notice are the two message slots every page can show; the rest
// are per-form field values so failed submissions re-render with the
// user's input preserved (passwords excepted).
type PageData struct {
	Title         string
	Authenticated bool
	Username      string
	CSRF          string

	Error  string
	Notice string

	// Form state.
	FormUsername string
	FormEmail    string
	Next         string
	Token        string

	// Error page state.
	Code    int
	Message string
}

// Home renders the landing page.
func Home(d PageData) templ.Component {
	d.Title = "Home"
	return templ.FromGoHTML(homeTmpl, d)
}

// Register renders the registration form.
func Register(d PageData) templ.Component {
	d.Title = "Register"
	return templ.FromGoHTML(registerTmpl, d)
}

// Login renders the login form.
func Login(d PageData) templ.Component {
	d.Title = "Sign in"
	return templ.FromGoHTML(loginTmpl, d)
}

// ResetRequest renders the "send me a reset link" form.
func ResetRequest(d PageData) templ.Component {
	d.Title = "Reset password"
	return templ.FromGoHTML(resetRequestTmpl, d)
}

// ResetPassword renders the new-password form behind a reset token link.
func ResetPassword(d PageData) templ.Component {
	d.Title = "Choose a new password"
	return templ.FromGoHTML(resetPasswordTmpl, d)
}

// ConfirmEmail renders the "confirm your email" info page with the resend
// button.
func ConfirmEmail(d PageData) templ.Component {
	d.Title = "Confirm your email"
	return templ.FromGoHTML(confirmEmailTmpl, d)
}

// Profile renders the protected profile page.
func Profile(d PageData) templ.Component {
	d.Title = "Profile"
	return templ.FromGoHTML(profileTmpl, d)
}

// Error renders the shared error page.
func Error(code int, message string) templ.Component {
	return templ.FromGoHTML(errorTmpl, PageData{
		Title:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}
