package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Dispatcher builds and sends the account emails. Every dispatch is bounded
// by a timeout and every failure is logged and swallowed: registration and
// reset-request responses must not depend on mail deliverability.
type Dispatcher struct {
	sender  Sender
	baseURL string
	timeout time.Duration
}

// NewDispatcher creates a dispatcher sending through the given Sender.
// baseURL is the public origin used to build the links inside emails.
func NewDispatcher(sender Sender, baseURL string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// SendEmailConfirmation emails the confirm link for a freshly issued token.
// Never returns an error; transport problems are logged.
func (d *Dispatcher) SendEmailConfirmation(ctx context.Context, recipient, tok string) {
	link := d.baseURL + "/user/confirm_email/" + tok

	text := "Hello!\n\n" +
		"To confirm your email address, follow this link:\n" +
		link + "\n\n" +
		"If you did not sign up, just ignore this email.\n\n" +
		"Regards,\nThe Gatehouse team"

	html := "<p>Hello!</p>" +
		"<p>To confirm your email address, follow this link:</p>" +
		fmt.Sprintf(`<p><a href="%s">Confirm email</a></p>`, link) +
		"<p>If you did not sign up, just ignore this email.</p>" +
		"<p>Regards,<br>The Gatehouse team</p>"

	d.dispatch(ctx, recipient, "Confirm your email address", text, html)
}

// SendPasswordReset emails the reset link for a freshly issued token.
// Never returns an error; transport problems are logged.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, recipient, tok string) {
	link := d.baseURL + "/user/reset_password/" + tok

	text := "Hello!\n\n" +
		"To reset your password, follow this link:\n" +
		link + "\n\n" +
		"If you did not request a password reset, just ignore this email.\n\n" +
		"Regards,\nThe Gatehouse team"

	html := "<p>Hello!</p>" +
		"<p>To reset your password, follow this link:</p>" +
		fmt.Sprintf(`<p><a href="%s">Reset password</a></p>`, link) +
		"<p>If you did not request a password reset, just ignore this email.</p>" +
		"<p>Regards,<br>The Gatehouse team</p>"

	d.dispatch(ctx, recipient, "Password reset", text, html)
}

// dispatch performs one bounded send and logs any failure. The error stops
// here: callers have already committed their user-visible outcome.
func (d *Dispatcher) dispatch(ctx context.Context, recipient, subject, text, html string) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, recipient, subject, text, html); err != nil {
		slog.Error("sending email failed",
			slog.String("to", recipient),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
	}
}
