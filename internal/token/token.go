// Package token issues and verifies the signed, time-limited tokens that
// travel inside confirmation and password-reset emails. Tokens are HMAC
// signed (HS256) and carry {user id, purpose, issued-at}; validity is purely
// a function of signature correctness and age, so the service is stateless
// and there is no server-side revocation list.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags what a token is allowed to do. A reset token can never
// confirm an email and vice versa.
type Purpose string

const (
	// PurposePasswordReset authorizes setting a new password.
	PurposePasswordReset Purpose = "password_reset"

	// PurposeEmailConfirm authorizes flipping is_confirmed.
	PurposeEmailConfirm Purpose = "email_confirm"
)

// valid reports whether the purpose is one of the known tags. Unknown or
// missing purposes are rejected at decode.
func (p Purpose) valid() bool {
	return p == PurposePasswordReset || p == PurposeEmailConfirm
}

// ErrInvalid is the single verification failure. Bad signature, wrong
// purpose, malformed payload, and expiry all collapse into it: callers only
// ever branch on valid versus invalid, never on the cause.
var ErrInvalid = errors.New("token is invalid or expired")

// claims is the signed payload. Expiry is not embedded -- the acceptable
// age is the verifier's choice, checked against issued-at.
type claims struct {
	UserID  int64   `json:"uid"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a process-wide secret key loaded
// once at startup.
type Service struct {
	secret []byte

	// now is the clock source, swappable in tests to simulate expiry.
	now func() time.Time
}

// NewService creates a token service signing with the given secret.
func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// SetClock overrides the clock source. A test hook: aging tokens without
// sleeping.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Issue creates a signed token for the user and purpose, stamped with the
// current UTC instant.
func (s *Service) Issue(userID int64, purpose Purpose) (string, error) {
	if !purpose.valid() {
		return "", errors.New("unknown token purpose")
	}

	c := claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now().UTC()),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks the token and returns the embedded user ID. The signature
// is checked first (fails closed on any tampering), then the issued-at age
// against maxAge, then the purpose tag. Every failure is ErrInvalid.
//
// The caller resolves the user ID against the credential store; a token
// whose user no longer exists is treated as invalid there.
func (s *Service) Verify(tokenStr string, purpose Purpose, maxAge time.Duration) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)

	tok, err := parser.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalid
	}

	c, ok := tok.Claims.(*claims)
	if !ok || c.UserID <= 0 || !c.Purpose.valid() || c.IssuedAt == nil {
		return 0, ErrInvalid
	}
	if c.Purpose != purpose {
		return 0, ErrInvalid
	}
	if s.now().UTC().Sub(c.IssuedAt.Time) > maxAge {
		return 0, ErrInvalid
	}

	return c.UserID, nil
}
