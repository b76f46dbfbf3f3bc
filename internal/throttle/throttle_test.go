package throttle

import (
	"testing"
	"time"

	"github.com/dprimakov/gatehouse/internal/session"
)

func TestAllowFreshSession(t *testing.T) {
	sess := &session.Data{}
	now := time.Now().UTC()

	if !Allow(sess, KeyConfirmationEmail, now, DefaultCooldown) {
		t.Error("fresh session should be allowed")
	}
	if !Allow(sess, KeyResetRequest, now, DefaultCooldown) {
		t.Error("fresh session should be allowed")
	}
}

func TestAllowWithinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sess := &session.Data{}
	Stamp(sess, KeyConfirmationEmail, now)

	if Allow(sess, KeyConfirmationEmail, now.Add(30*time.Second), DefaultCooldown) {
		t.Error("resend at +30s should be blocked")
	}
	if !Allow(sess, KeyConfirmationEmail, now.Add(61*time.Second), DefaultCooldown) {
		t.Error("resend at +61s should be allowed")
	}
}

func TestKeysIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sess := &session.Data{}
	Stamp(sess, KeyConfirmationEmail, now)

	// A confirmation dispatch does not block a reset request.
	if !Allow(sess, KeyResetRequest, now.Add(time.Second), DefaultCooldown) {
		t.Error("reset request should not share the confirmation cooldown")
	}
}

func TestWait(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sess := &session.Data{}
	if got := Wait(sess, KeyResetRequest, now, DefaultCooldown); got != 0 {
		t.Errorf("Wait on fresh session = %v, want 0", got)
	}

	Stamp(sess, KeyResetRequest, now)

	if got := Wait(sess, KeyResetRequest, now.Add(20*time.Second), DefaultCooldown); got != 40*time.Second {
		t.Errorf("Wait at +20s = %v, want 40s", got)
	}
	if got := Wait(sess, KeyResetRequest, now.Add(2*time.Minute), DefaultCooldown); got != 0 {
		t.Errorf("Wait at +2m = %v, want 0", got)
	}
}

func TestStampRecordsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2026, 3, 1, 17, 0, 0, 0, loc)

	sess := &session.Data{}
	Stamp(sess, KeyConfirmationEmail, now)

	if sess.LastConfirmationEmail.Location() != time.UTC {
		t.Error("stamp should be stored as UTC")
	}
	if !sess.LastConfirmationEmail.Equal(now) {
		t.Error("stamp should preserve the instant")
	}
}
