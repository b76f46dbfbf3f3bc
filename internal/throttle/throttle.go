// Package throttle implements the per-session resend cooldown. It guards
// the "send me the email again" actions (confirmation and password reset)
// so one browser session cannot trigger more than one dispatch per cooldown
// window. This is advisory, local-session throttling only: the same user in
// a second browser gets a fresh window.
package throttle

import (
	"time"

	"github.com/dprimakov/gatehouse/internal/session"
)

// DefaultCooldown is the minimum gap between repeated email dispatches
// from one session.
const DefaultCooldown = 60 * time.Second

// Key identifies which timestamp in the session a throttled action reads
// and writes.
type Key string

const (
	// KeyConfirmationEmail throttles confirmation email resends.
	KeyConfirmationEmail Key = "confirmation_email"

	// KeyResetRequest throttles password reset request emails.
	KeyResetRequest Key = "reset_request"
)

// Allow reports whether the action identified by key may dispatch again.
// It returns false, leaving the session unchanged, while the last dispatch
// is younger than cooldown. On true the caller is responsible for calling
// Stamp once the dispatch actually happened.
//
// Timestamps are compared as UTC instants; now should come from the server
// wall clock via time.Now().UTC().
func Allow(sess *session.Data, key Key, now time.Time, cooldown time.Duration) bool {
	last := lastDispatch(sess, key)
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= cooldown
}

// Wait returns how long the session must wait before the action is allowed
// again. Zero means the action is allowed now.
func Wait(sess *session.Data, key Key, now time.Time, cooldown time.Duration) time.Duration {
	last := lastDispatch(sess, key)
	if last.IsZero() {
		return 0
	}
	remaining := cooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stamp records a successful dispatch for the action. Callers persist the
// session afterwards; Stamp only mutates the in-memory state.
func Stamp(sess *session.Data, key Key, now time.Time) {
	switch key {
	case KeyConfirmationEmail:
		sess.LastConfirmationEmail = now.UTC()
	case KeyResetRequest:
		sess.LastResetRequest = now.UTC()
	}
}

// lastDispatch reads the timestamp tracked for key.
func lastDispatch(sess *session.Data, key Key) time.Time {
	switch key {
	case KeyConfirmationEmail:
		return sess.LastConfirmationEmail
	case KeyResetRequest:
		return sess.LastResetRequest
	}
	return time.Time{}
}
