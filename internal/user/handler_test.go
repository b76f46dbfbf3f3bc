package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dprimakov/gatehouse/internal/session"
)

// stubService implements Service through function fields; unset methods
// fail the test if reached.
type stubService struct {
	t          *testing.T
	findByIDFn func(ctx context.Context, id int64) (*User, error)
}

func (s *stubService) Register(ctx context.Context, sess *session.Data, in RegisterInput) (*User, error) {
	s.t.Fatal("unexpected Register call")
	return nil, nil
}

func (s *stubService) Login(ctx context.Context, sess *session.Data, in LoginInput) (*User, error) {
	s.t.Fatal("unexpected Login call")
	return nil, nil
}

func (s *stubService) ResendConfirmation(ctx context.Context, sess *session.Data) error {
	s.t.Fatal("unexpected ResendConfirmation call")
	return nil
}

func (s *stubService) RequestPasswordReset(ctx context.Context, sess *session.Data, email string) error {
	s.t.Fatal("unexpected RequestPasswordReset call")
	return nil
}

func (s *stubService) ConfirmEmail(ctx context.Context, tok string) (*User, bool, error) {
	s.t.Fatal("unexpected ConfirmEmail call")
	return nil, false, nil
}

func (s *stubService) VerifyResetToken(ctx context.Context, tok string) (*User, error) {
	s.t.Fatal("unexpected VerifyResetToken call")
	return nil, nil
}

func (s *stubService) ResetPassword(ctx context.Context, sess *session.Data, tok, newPassword string) error {
	s.t.Fatal("unexpected ResetPassword call")
	return nil
}

func (s *stubService) FindByID(ctx context.Context, id int64) (*User, error) {
	if s.findByIDFn == nil {
		s.t.Fatal("unexpected FindByID call")
	}
	return s.findByIDFn(ctx, id)
}

func newAuthTestServer(t *testing.T, svc Service) (*echo.Echo, *session.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := session.NewStore(rdb, time.Hour, false)

	e := echo.New()
	e.Use(store.Middleware())
	e.GET("/profile", func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil {
			t.Error("CurrentUser is nil inside a guarded handler")
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, u.Username)
	}, RequireAuth(svc, store))

	return e, store
}

// loginCookie seeds an authenticated session and returns its cookie.
func loginCookie(t *testing.T, e *echo.Echo, store *session.Store, userID int64) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := store.Save(c, &session.Data{UserID: userID, Username: "denis"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie minted")
	return nil
}

func TestRequireAuthAnonymous(t *testing.T) {
	svc := &stubService{t: t}
	e, _ := newAuthTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/user/login?next=%2Fprofile" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireAuthConfirmed(t *testing.T) {
	svc := &stubService{t: t, findByIDFn: func(ctx context.Context, id int64) (*User, error) {
		return &User{ID: id, Username: "denis", IsConfirmed: true}, nil
	}}
	e, store := newAuthTestServer(t, svc)
	cookie := loginCookie(t, e, store, 1)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "denis" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequireAuthUnconfirmed(t *testing.T) {
	svc := &stubService{t: t, findByIDFn: func(ctx context.Context, id int64) (*User, error) {
		return &User{ID: id, Username: "denis", IsConfirmed: false}, nil
	}}
	e, store := newAuthTestServer(t, svc)
	cookie := loginCookie(t, e, store, 1)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// An unconfirmed account is bounced exactly like an anonymous visitor.
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
}

func TestSanitizeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/profile", "/profile"},
		{"/user/confirm_email", "/user/confirm_email"},
		{"profile", ""},
		{"//evil.example.com", ""},
		{"https://evil.example.com", ""},
		{"/\\evil.example.com", ""},
	}

	for _, tt := range tests {
		if got := sanitizeNext(tt.in); got != tt.want {
			t.Errorf("sanitizeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
