package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dprimakov/gatehouse/internal/apperror"
	"github.com/dprimakov/gatehouse/internal/mailer"
	"github.com/dprimakov/gatehouse/internal/session"
	"github.com/dprimakov/gatehouse/internal/throttle"
	"github.com/dprimakov/gatehouse/internal/token"
)

// ErrNotConfirmed is returned by Login when the credentials are correct
// but the account has not confirmed its email yet. The handler routes the
// user to the confirmation flow instead of creating an authenticated
// session.
var ErrNotConfirmed = errors.New("email address not confirmed")

// ThrottledError is returned when a resend action hits the per-session
// cooldown. It is an expected outcome, not a failure: the handler shows a
// "please wait" message and nothing is dispatched.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled, retry in %s", e.Wait.Round(time.Second))
}

// Service is the account state machine. Handlers call these methods and
// never touch the repository, token service, or dispatcher directly.
//
// Methods taking a *session.Data mutate it in place; the handler persists
// the session afterwards.
type Service interface {
	// Register creates an unconfirmed account and dispatches the
	// confirmation email. The user is NOT logged in afterwards. The
	// session records the pending email and the dispatch timestamp.
	Register(ctx context.Context, sess *session.Data, in RegisterInput) (*User, error)

	// Login authenticates by email and password. Unknown email and wrong
	// password both yield the same generic unauthorized error. Correct
	// credentials on an unconfirmed account yield ErrNotConfirmed and
	// record the pending identity in the session.
	Login(ctx context.Context, sess *session.Data, in LoginInput) (*User, error)

	// ResendConfirmation re-sends the confirmation email to the pending
	// address in the session, subject to the cooldown.
	ResendConfirmation(ctx context.Context, sess *session.Data) error

	// RequestPasswordReset dispatches a reset email for the address,
	// subject to the cooldown. The session remembers the address and
	// that a reset is in flight.
	RequestPasswordReset(ctx context.Context, sess *session.Data, email string) error

	// ConfirmEmail consumes a confirmation token. Returns the user and
	// whether the account was already confirmed (replay is a no-op).
	ConfirmEmail(ctx context.Context, tok string) (*User, bool, error)

	// VerifyResetToken resolves a reset token to its user without
	// consuming anything. Used to vet the link before showing the form.
	VerifyResetToken(ctx context.Context, tok string) (*User, error)

	// ResetPassword consumes a reset token and sets the new password.
	// The session's pending reset markers are cleared on success.
	ResetPassword(ctx context.Context, sess *session.Data, tok, newPassword string) error

	// FindByID loads an account. Used by the auth middleware.
	FindByID(ctx context.Context, id int64) (*User, error)
}

// service implements Service.
type service struct {
	repo        Repository
	tokens      *token.Service
	mail        *mailer.Dispatcher
	tokenMaxAge time.Duration
	cooldown    time.Duration

	// now is the clock source, swappable in tests.
	now func() time.Time
}

// NewService creates the account service. tokenMaxAge bounds how old a
// confirmation or reset token may be when consumed.
func NewService(repo Repository, tokens *token.Service, mail *mailer.Dispatcher, tokenMaxAge time.Duration) Service {
	return &service{
		repo:        repo,
		tokens:      tokens,
		mail:        mail,
		tokenMaxAge: tokenMaxAge,
		cooldown:    throttle.DefaultCooldown,
		now:         time.Now,
	}
}

// Register creates the account and fires the confirmation email. Mail
// transport failures are absorbed by the dispatcher: the registration
// still succeeds and the user can request a resend later.
func (s *service) Register(ctx context.Context, sess *session.Data, in RegisterInput) (*User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	u := &User{
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		IsConfirmed:  false,
		Role:         defaultRole,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
	)

	// Record the pending identity so the confirmation page can resend,
	// and stamp the dispatch so an immediate resend is throttled.
	sess.Email = u.Email
	s.dispatchConfirmation(ctx, sess, u)

	return u, nil
}

// Login checks credentials and enforces the confirmation gate.
func (s *service) Login(ctx context.Context, sess *session.Data, in LoginInput) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if apperror.IsType(err, apperror.TypeNotFound) {
			// Burn comparable work on the unknown-email path so it is
			// not distinguishable from a wrong password by timing.
			verifyPassword(dummyHash, in.Password)
			return nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !verifyPassword(u.PasswordHash, in.Password) {
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	if !u.IsConfirmed {
		// Correct credentials, but the gate holds. Remember the pending
		// identity and open a resend opportunity in the session.
		sess.Email = u.Email
		throttle.Stamp(sess, throttle.KeyConfirmationEmail, s.now())
		return u, ErrNotConfirmed
	}

	slog.Info("user logged in", slog.Int64("user_id", u.ID))
	return u, nil
}

// ResendConfirmation re-sends the confirmation email for the session's
// pending address.
func (s *service) ResendConfirmation(ctx context.Context, sess *session.Data) error {
	if wait := throttle.Wait(sess, throttle.KeyConfirmationEmail, s.now(), s.cooldown); wait > 0 {
		return &ThrottledError{Wait: wait}
	}

	if sess.Email == "" {
		return apperror.NewNotFound("user not found")
	}
	u, err := s.repo.FindByEmail(ctx, sess.Email)
	if err != nil {
		return err
	}

	s.dispatchConfirmation(ctx, sess, u)
	return nil
}

// RequestPasswordReset dispatches a reset email to an existing account.
func (s *service) RequestPasswordReset(ctx context.Context, sess *session.Data, email string) error {
	email = normalizeEmail(email)
	sess.Email = email

	if wait := throttle.Wait(sess, throttle.KeyResetRequest, s.now(), s.cooldown); wait > 0 {
		return &ThrottledError{Wait: wait}
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	tok, err := s.tokens.Issue(u.ID, token.PurposePasswordReset)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing reset token: %w", err))
	}
	s.mail.SendPasswordReset(ctx, u.Email, tok)

	throttle.Stamp(sess, throttle.KeyResetRequest, s.now())
	sess.PasswordResetRequested = true

	slog.Info("password reset requested", slog.Int64("user_id", u.ID))
	return nil
}

// ConfirmEmail consumes a confirmation token. Replaying a valid token on
// an already-confirmed account changes nothing and reports success.
func (s *service) ConfirmEmail(ctx context.Context, tok string) (*User, bool, error) {
	u, err := s.resolveToken(ctx, tok, token.PurposeEmailConfirm)
	if err != nil {
		return nil, false, err
	}

	if u.IsConfirmed {
		return u, true, nil
	}

	if err := s.repo.Confirm(ctx, u.ID); err != nil {
		return nil, false, err
	}
	u.IsConfirmed = true

	slog.Info("email confirmed", slog.Int64("user_id", u.ID))
	return u, false, nil
}

// VerifyResetToken vets a reset link without side effects.
func (s *service) VerifyResetToken(ctx context.Context, tok string) (*User, error) {
	return s.resolveToken(ctx, tok, token.PurposePasswordReset)
}

// ResetPassword consumes a reset token and overwrites the password.
// A still-valid token can be replayed within its lifetime; there is no
// single-use invalidation.
func (s *service) ResetPassword(ctx context.Context, sess *session.Data, tok, newPassword string) error {
	u, err := s.resolveToken(ctx, tok, token.PurposePasswordReset)
	if err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	// The reset is complete; drop the pending markers.
	sess.Email = ""
	sess.LastResetRequest = time.Time{}

	slog.Info("password reset", slog.Int64("user_id", u.ID))
	return nil
}

// FindByID loads an account by ID.
func (s *service) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// resolveToken verifies a signed token and resolves its user. Signature
// failure, expiry, and a vanished user all collapse into the one
// token-invalid outcome; store connectivity trouble stays distinct so the
// user is told to retry rather than to request a new link.
func (s *service) resolveToken(ctx context.Context, tok string, purpose token.Purpose) (*User, error) {
	userID, err := s.tokens.Verify(tok, purpose, s.tokenMaxAge)
	if err != nil {
		return nil, apperror.NewTokenInvalid()
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsType(err, apperror.TypeNotFound) {
			return nil, apperror.NewTokenInvalid()
		}
		return nil, err
	}
	return u, nil
}

// dispatchConfirmation issues a confirmation token, emails it, and stamps
// the session cooldown. Dispatch failures are logged by the dispatcher and
// never surface here.
func (s *service) dispatchConfirmation(ctx context.Context, sess *session.Data, u *User) {
	tok, err := s.tokens.Issue(u.ID, token.PurposeEmailConfirm)
	if err != nil {
		slog.Error("issuing confirmation token",
			slog.Int64("user_id", u.ID),
			slog.Any("error", err),
		)
		return
	}
	s.mail.SendEmailConfirmation(ctx, u.Email, tok)
	throttle.Stamp(sess, throttle.KeyConfirmationEmail, s.now())
}

// normalizeEmail lowercases and trims an address so lookups and unique
// keys treat case variants as the same identity.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
