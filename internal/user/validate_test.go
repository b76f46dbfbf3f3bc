package user

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"letters and digits", "Pass1234", true},
		{"minimum length", "abc123", true},
		{"cyrillic letter counts", "пароль1", true},
		{"empty", "", false},
		{"too short", "Pa1", false},
		{"letters only", "Password", false},
		{"digits only", "12345678", false},
		{"punctuation only", "!!!???...", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validatePassword(tt.password)
			if ok := msg == ""; ok != tt.wantOK {
				t.Errorf("validatePassword(%q) = %q, want ok=%v", tt.password, msg, tt.wantOK)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		wantOK bool
	}{
		{"plain address", "denis@example.com", true},
		{"subdomain", "a@mail.example.co.uk", true},
		{"empty", "", false},
		{"no at sign", "denis.example.com", false},
		{"no domain", "denis@", false},
		{"display name form", "Denis <denis@example.com>", false},
		{"too long", strings.Repeat("a", 55) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateEmail(tt.email)
			if ok := msg == ""; ok != tt.wantOK {
				t.Errorf("validateEmail(%q) = %q, want ok=%v", tt.email, msg, tt.wantOK)
			}
		})
	}
}

func TestValidateRegisterRequest(t *testing.T) {
	valid := func() RegisterRequest {
		return RegisterRequest{
			Username:        "denis",
			Email:           "denis@example.com",
			Password:        "Pass1234",
			ConfirmPassword: "Pass1234",
		}
	}

	t.Run("valid form", func(t *testing.T) {
		req := valid()
		if msg := validateRegisterRequest(&req); msg != "" {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("username too short", func(t *testing.T) {
		req := valid()
		req.Username = "d"
		if msg := validateRegisterRequest(&req); msg == "" {
			t.Error("expected a validation message")
		}
	})

	t.Run("username too long", func(t *testing.T) {
		req := valid()
		req.Username = strings.Repeat("d", 21)
		if msg := validateRegisterRequest(&req); msg == "" {
			t.Error("expected a validation message")
		}
	})

	t.Run("password mismatch", func(t *testing.T) {
		req := valid()
		req.ConfirmPassword = "Pass12345"
		if msg := validateRegisterRequest(&req); msg == "" {
			t.Error("expected a validation message")
		}
	})
}
