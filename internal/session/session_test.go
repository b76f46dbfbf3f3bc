package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(rdb, time.Hour, false), mr
}

func newContext(e *echo.Echo, cookie *http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// sessionCookie digs the session cookie out of a recorded response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()

	c1, rec := newContext(e, nil)
	data := &Data{Email: "denis@example.com", PasswordResetRequested: true}
	if err := store.Save(c1, data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be SameSite=Lax")
	}

	c2, _ := newContext(e, cookie)
	loaded, err := store.load(c2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Email != "denis@example.com" || !loaded.PasswordResetRequested {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.IsAuthenticated() {
		t.Error("pending session must not be authenticated")
	}
}

func TestLoadWithoutCookie(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()

	c, _ := newContext(e, nil)
	data, err := store.load(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if data == nil || data.IsAuthenticated() {
		t.Errorf("anonymous load = %+v", data)
	}
}

func TestLoadUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()

	c, _ := newContext(e, &http.Cookie{Name: cookieName, Value: "deadbeef"})
	data, err := store.load(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if data.IsAuthenticated() {
		t.Error("unknown token should yield an empty session")
	}
}

func TestSaveReusesToken(t *testing.T) {
	store, mr := newTestStore(t)
	e := echo.New()

	c, _ := newContext(e, nil)
	if err := store.Save(c, &Data{Email: "a@example.com"}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := store.Save(c, &Data{Email: "b@example.com"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	// Both writes within one request land under one key.
	if n := len(mr.Keys()); n != 1 {
		t.Errorf("redis holds %d keys, want 1", n)
	}
}

func TestRenewRotatesToken(t *testing.T) {
	store, mr := newTestStore(t)
	e := echo.New()

	c1, rec := newContext(e, nil)
	if err := store.Save(c1, &Data{Email: "denis@example.com"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	old := sessionCookie(t, rec)

	c2, rec2 := newContext(e, old)
	if _, err := store.load(c2); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Renew(c2, &Data{UserID: 1, Username: "denis"}); err != nil {
		t.Fatalf("Renew: %v", err)
	}

	fresh := sessionCookie(t, rec2)
	if fresh.Value == old.Value {
		t.Error("Renew must mint a new token")
	}
	if mr.Exists(keyPrefix + old.Value) {
		t.Error("old session payload should be deleted")
	}

	c3, _ := newContext(e, fresh)
	loaded, err := store.load(c3)
	if err != nil {
		t.Fatalf("load renewed: %v", err)
	}
	if loaded.UserID != 1 || loaded.Username != "denis" {
		t.Errorf("renewed session = %+v", loaded)
	}
}

func TestDestroy(t *testing.T) {
	store, mr := newTestStore(t)
	e := echo.New()

	c1, rec := newContext(e, nil)
	if err := store.Save(c1, &Data{UserID: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cookie := sessionCookie(t, rec)

	c2, rec2 := newContext(e, cookie)
	if err := store.Destroy(c2); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if mr.Exists(keyPrefix + cookie.Value) {
		t.Error("payload should be gone from redis")
	}
	cleared := sessionCookie(t, rec2)
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("cookie not expired: %+v", cleared)
	}
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	e := echo.New()

	c1, rec := newContext(e, nil)
	if err := store.Save(c1, &Data{UserID: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cookie := sessionCookie(t, rec)

	mr.FastForward(2 * time.Hour)

	c2, _ := newContext(e, cookie)
	data, err := store.load(c2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if data.IsAuthenticated() {
		t.Error("expired session should come back anonymous")
	}
}

func TestMiddlewareProvidesSession(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()
	e.Use(store.Middleware())
	e.GET("/", func(c echo.Context) error {
		if FromContext(c) == nil {
			t.Error("FromContext returned nil under middleware")
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
