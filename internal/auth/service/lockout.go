package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

type LockoutConfig struct {
	// Threshold is the failure count that locks a subject. 0 disables lockout.
	Threshold int

	LockDuration time.Duration

	// Window bounds how far apart counted failures may be. 0 means forever.
	Window time.Duration
}

// LoginAttemptPolicy counts failed logins per subject and locks subjects
// that fail too often.
type LoginAttemptPolicy struct {
	Store  store.LoginAttempts
	Clock  clockx.Clock
	Config LockoutConfig
}

func (p *LoginAttemptPolicy) IsLocked(ctx context.Context, subject string) (bool, error) {
	st, err := p.Store.Get(ctx, subject)
	if err != nil {
		return false, storeErr("login attempts get", err)
	}
	return st.LockedAt(p.Clock.Now()), nil
}

// RecordFailure counts one failure. While the subject is locked nothing is
// counted and the current lock is reported.
func (p *LoginAttemptPolicy) RecordFailure(ctx context.Context, subject string) (domain.LockDecision, error) {
	now := p.Clock.Now()

	st, err := p.Store.Get(ctx, subject)
	if err != nil {
		return domain.LockDecision{}, storeErr("login attempts get", err)
	}
	if st.LockedAt(now) {
		return domain.LockDecision{Locked: true, FailureCount: st.FailureCount, LockedUntil: st.LockedUntil}, nil
	}

	n, err := p.Store.IncrementFailure(ctx, subject, p.Config.Window)
	if err != nil {
		return domain.LockDecision{}, storeErr("login attempts increment", err)
	}

	if p.Config.Threshold <= 0 || n < p.Config.Threshold {
		return domain.LockDecision{FailureCount: n}, nil
	}

	until := now.Add(p.Config.LockDuration)
	if err := p.Store.Lock(ctx, subject, until); err != nil {
		return domain.LockDecision{}, storeErr("login attempts lock", err)
	}
	return domain.LockDecision{Locked: true, FailureCount: n, LockedUntil: until}, nil
}

func (p *LoginAttemptPolicy) Reset(ctx context.Context, subject string) error {
	return storeErr("login attempts reset", p.Store.Reset(ctx, subject))
}
