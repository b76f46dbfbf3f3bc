// Package user implements the account domain for gatehouse: the credential
// store over MariaDB, the login/confirmation state machine, and the HTTP
// handlers for the /user routes. Email tokens come from the token package,
// outbound mail goes through the mailer dispatcher, and per-session resend
// cooldowns are enforced with the throttle package.
package user

import (
	"time"
)

// Role assigned to every new account. No in-scope operation changes it.
const defaultRole = "user"

// User is the account record owned by the credential store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	IsConfirmed  bool      `json:"is_confirmed"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Request DTOs (bound from HTTP forms) ---

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// --- Service inputs (validated, passed from handler to service) ---

// RegisterInput is the validated input for creating a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}
