package domain

import "time"

// LoginAttemptState is the failure bookkeeping for one subject.
type LoginAttemptState struct {
	Subject      string
	FailureCount int
	LockedUntil  time.Time // zero when not locked
}

// LockedAt reports whether the subject is locked at now.
func (s LoginAttemptState) LockedAt(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// LockDecision is the outcome of recording a failed attempt.
type LockDecision struct {
	Locked       bool
	FailureCount int
	LockedUntil  time.Time
}
