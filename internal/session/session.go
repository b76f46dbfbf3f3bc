// Package session implements the server-side browser session for gatehouse.
// A random 256-bit token travels in an HttpOnly cookie; the session payload
// lives in Redis under that token with a TTL. Handlers read and write the
// session through an explicit *Data passed via the request context -- there
// is no ambient global session state.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// cookieName is the HTTP cookie that carries the session token.
const cookieName = "gatehouse_session"

// keyPrefix is the Redis key prefix for session payloads.
const keyPrefix = "session:"

// tokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

// contextKeyData is the Echo context key holding the loaded *Data.
const contextKeyData = "session_data"

// contextKeyToken is the Echo context key holding the session token, so a
// Get followed by Save within one request reuses the same token.
const contextKeyToken = "session_token"

// Data is the per-browser session payload. UserID is non-zero only for an
// authenticated session. Email and the throttle timestamps track the
// pending (not yet logged in) identity during the confirmation and reset
// flows; they are cleared on successful login or password reset.
type Data struct {
	UserID                 int64     `json:"user_id"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	LastConfirmationEmail  time.Time `json:"last_confirmation_email"`
	LastResetRequest       time.Time `json:"last_reset_request"`
	PasswordResetRequested bool      `json:"password_reset_requested"`
	CreatedAt              time.Time `json:"created_at"`
}

// IsAuthenticated reports whether the session belongs to a logged-in user.
func (d *Data) IsAuthenticated() bool {
	return d.UserID != 0
}

// Store persists sessions in Redis and manages the session cookie.
type Store struct {
	redis        *redis.Client
	ttl          time.Duration
	cookieSecure bool
}

// NewStore creates a session store with the given TTL and cookie settings.
func NewStore(rdb *redis.Client, ttl time.Duration, cookieSecure bool) *Store {
	return &Store{
		redis:        rdb,
		ttl:          ttl,
		cookieSecure: cookieSecure,
	}
}

// Middleware loads the session for every request and stores it in the Echo
// context. A missing, expired, or unreadable session yields a fresh empty
// Data so downstream handlers never see nil.
func (s *Store) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := s.load(c)
			if err != nil {
				// Session store trouble must not fail page loads; the
				// request proceeds as anonymous.
				slog.Error("loading session", slog.Any("error", err))
				data = &Data{}
			}
			c.Set(contextKeyData, data)
			return next(c)
		}
	}
}

// FromContext returns the session loaded by Middleware. Returns an empty
// session if the middleware was not applied.
func FromContext(c echo.Context) *Data {
	if data, ok := c.Get(contextKeyData).(*Data); ok {
		return data
	}
	return &Data{}
}

// load reads the session payload for the request's cookie token. No cookie
// or no Redis entry yields a fresh empty session.
func (s *Store) load(c echo.Context) (*Data, error) {
	token := s.cookieToken(c)
	if token == "" {
		return &Data{}, nil
	}
	c.Set(contextKeyToken, token)

	raw, err := s.redis.Get(c.Request().Context(), keyPrefix+token).Bytes()
	if err == redis.Nil {
		return &Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from redis: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &data, nil
}

// Save writes the session payload back to Redis, minting a token and
// setting the cookie if the browser does not have one yet. Handlers call
// this after every session mutation.
func (s *Store) Save(c echo.Context, data *Data) error {
	token, ok := c.Get(contextKeyToken).(string)
	if !ok || token == "" {
		var err error
		token, err = generateToken()
		if err != nil {
			return fmt.Errorf("generating session token: %w", err)
		}
		c.Set(contextKeyToken, token)
		s.setCookie(c, token)
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := s.redis.Set(c.Request().Context(), keyPrefix+token, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session in redis: %w", err)
	}
	return nil
}

// Renew discards the current session token and mints a fresh one holding
// the given payload. Called on login so an authenticated session never
// continues under a token that existed before authentication.
func (s *Store) Renew(c echo.Context, data *Data) error {
	if token, ok := c.Get(contextKeyToken).(string); ok && token != "" {
		if err := s.redis.Del(c.Request().Context(), keyPrefix+token).Err(); err != nil {
			slog.Warn("deleting old session", slog.Any("error", err))
		}
	}
	c.Set(contextKeyToken, "")
	data.CreatedAt = time.Now().UTC()
	return s.Save(c, data)
}

// Destroy removes the session from Redis and expires the cookie.
func (s *Store) Destroy(c echo.Context) error {
	token := s.cookieToken(c)
	if token != "" {
		if err := s.redis.Del(c.Request().Context(), keyPrefix+token).Err(); err != nil {
			return fmt.Errorf("deleting session from redis: %w", err)
		}
	}
	c.Set(contextKeyToken, "")
	c.Set(contextKeyData, &Data{})
	s.clearCookie(c)
	return nil
}

// DeleteToken removes a session payload by raw token. Used by tests and
// administrative cleanup; request handlers go through Destroy.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	return s.redis.Del(ctx, keyPrefix+token).Err()
}

// --- Cookie helpers ---

// cookieToken reads the session token from the request cookie.
func (s *Store) cookieToken(c echo.Context) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setCookie attaches the session cookie to the response. HttpOnly always;
// Secure per deployment config; SameSite=Lax so top-level navigations from
// email links still carry the session.
func (s *Store) setCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// clearCookie expires the session cookie.
func (s *Store) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
