package user

import (
	"net/mail"
	"unicode"
	"unicode/utf8"
)

// Form field limits. Username length matches the registration form; the
// email cap matches the column width.
const (
	usernameMinLen = 2
	usernameMaxLen = 20
	emailMaxLen    = 60
	passwordMinLen = 6
)

// validateRegisterRequest checks the registration form server-side.
// Returns a user-facing message, or empty string when the form is valid.
func validateRegisterRequest(req *RegisterRequest) string {
	if req.Username == "" {
		return "username is required"
	}
	if n := utf8.RuneCountInString(req.Username); n < usernameMinLen || n > usernameMaxLen {
		return "username must be between 2 and 20 characters"
	}
	if msg := validateEmail(req.Email); msg != "" {
		return msg
	}
	if msg := validatePassword(req.Password); msg != "" {
		return msg
	}
	if req.ConfirmPassword != req.Password {
		return "passwords do not match"
	}
	return ""
}

// validateEmail checks syntax and length of an email address.
func validateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > emailMaxLen {
		return "email must be at most 60 characters"
	}
	// ParseAddress accepts "Name <addr>" forms; require the bare address.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "enter a valid email address"
	}
	return ""
}

// validatePassword enforces the password policy: at least 6 characters
// containing at least one letter and one digit.
func validatePassword(password string) string {
	if password == "" {
		return "password is required"
	}
	if utf8.RuneCountInString(password) < passwordMinLen {
		return "password must be at least 6 characters"
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "password must contain at least one letter and one digit"
	}
	return ""
}
