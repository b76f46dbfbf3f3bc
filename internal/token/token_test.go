package token

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-key-0123456789abcdef"

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := NewService(testSecret)

	tok, err := s.Issue(42, PurposeEmailConfirm)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, err := s.Verify(tok, PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}
}

func TestVerifyWrongPurpose(t *testing.T) {
	s := NewService(testSecret)

	tok, err := s.Issue(42, PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := s.Verify(tok, PurposeEmailConfirm, time.Hour); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify with wrong purpose: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	s := NewService(testSecret)

	tok, err := s.Issue(42, PurposeEmailConfirm)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one byte in the payload segment.
	b := []byte(tok)
	mid := len(b) / 2
	if b[mid] == 'A' {
		b[mid] = 'B'
	} else {
		b[mid] = 'A'
	}

	if _, err := s.Verify(string(b), PurposeEmailConfirm, time.Hour); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify tampered token: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := NewService(testSecret).Issue(42, PurposeEmailConfirm)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewService("a-completely-different-secret-key")
	if _, err := other.Verify(tok, PurposeEmailConfirm, time.Hour); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify with wrong secret: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewService(testSecret)
	s.now = func() time.Time { return issued }

	tok, err := s.Issue(42, PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Just inside the window.
	s.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := s.Verify(tok, PurposePasswordReset, time.Hour); err != nil {
		t.Errorf("Verify at 59m: %v", err)
	}

	// Just past it.
	s.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	if _, err := s.Verify(tok, PurposePasswordReset, time.Hour); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify at 61m: err = %v, want ErrInvalid", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	s := NewService(testSecret)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := s.Verify(tok, PurposeEmailConfirm, time.Hour); !errors.Is(err, ErrInvalid) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalid", tok, err)
		}
	}
}

func TestIssueUnknownPurpose(t *testing.T) {
	s := NewService(testSecret)

	if _, err := s.Issue(42, Purpose("admin_takeover")); err == nil {
		t.Error("Issue with unknown purpose succeeded, want error")
	}
}
