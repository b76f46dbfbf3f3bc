// Package mailer provides outbound email for gatehouse: an SMTP sender and
// the notification dispatcher that builds the confirmation and reset
// messages. Mail failures are logged and suppressed -- the user-facing flows
// report success regardless of deliverability.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"

	"github.com/dprimakov/gatehouse/internal/config"
)

// Sender delivers a single email. Implementations must honor context
// cancellation so a slow mail server can never stall a request.
type Sender interface {
	Send(ctx context.Context, recipient, subject, textBody, htmlBody string) error
}

// NewSender builds a Sender from the mail config. When no SMTP host is
// configured the returned sender only logs, so development environments
// work without a mail server.
func NewSender(cfg config.MailConfig) (Sender, error) {
	if !cfg.Enabled() {
		slog.Warn("mail transport disabled, emails will be logged only")
		return &logSender{}, nil
	}

	scheme := "smtps"
	if cfg.TLSMode == "none" {
		scheme = "smtp"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	from, err := mail.ParseAddress(cfg.From())
	if err != nil {
		return nil, fmt.Errorf("parsing mail from address: %w", err)
	}

	client, err := goemail.NewSMTP(u.String(), &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing smtp client: %w", err)
	}

	return &smtpSender{
		client:   client,
		from:     from.Address,
		fromName: cfg.FromName,
	}, nil
}

// smtpSender sends mail through goemail over SMTPS or plain SMTP.
type smtpSender struct {
	client   *goemail.SMTP
	from     string
	fromName string
}

// Send delivers one message. The HTML body is preferred when present; the
// text body is the fallback for HTML-less messages. goemail has no context
// support, so the blocking send runs in a goroutine and the call returns
// with an error once ctx expires.
func (s *smtpSender) Send(ctx context.Context, recipient, subject, textBody, htmlBody string) error {
	var msg *goemail.Message
	if htmlBody != "" {
		msg = goemail.NewHTMLMessage(s.from, subject, htmlBody)
	} else {
		msg = goemail.NewMessage(s.from, subject, textBody)
	}
	msg.SetName(s.fromName)
	msg.AddTo(recipient)

	done := make(chan error, 1)
	go func() {
		done <- s.client.Send(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

// logSender is the development fallback when SMTP is not configured. It
// logs the message envelope (never the body, which contains live tokens at
// debug level only).
type logSender struct{}

func (l *logSender) Send(ctx context.Context, recipient, subject, textBody, htmlBody string) error {
	slog.Info("mail transport disabled, dropping email",
		slog.String("to", recipient),
		slog.String("subject", subject),
	)
	slog.Debug("dropped email body", slog.String("text", textBody))
	return nil
}
