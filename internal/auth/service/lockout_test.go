package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockoutAtThreshold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true, threshold: 3})

	for range 2 {
		_, err := h.login.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The failure that reaches the threshold already reports the lock
	_, err := h.login.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrSubjectLocked)

	// Even the right password is refused while locked
	_, err = h.login.Login(ctx, "alice", alicePassword)
	require.ErrorIs(t, err, ErrSubjectLocked)

	h.clock.Advance(testLockDuration - time.Second)
	_, err = h.login.Login(ctx, "alice", alicePassword)
	require.ErrorIs(t, err, ErrSubjectLocked)

	h.clock.Advance(time.Second)
	_, err = h.login.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
}

func TestLockoutSuccessResetsCount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true, threshold: 3})

	for range 2 {
		_, err := h.login.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	h.mustLogin(t)

	for range 2 {
		_, err := h.login.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	locked, err := h.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestLockoutFailuresOutsideWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true, threshold: 3})

	for range 2 {
		_, err := h.login.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	h.clock.Advance(testFailureWindow)
	decision, err := h.lockout.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	require.False(t, decision.Locked)
	require.Equal(t, 1, decision.FailureCount)
}

func TestLockoutDisabled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})

	for range 10 {
		_, err := h.login.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	h.mustLogin(t)
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})

	_, err := h.login.Login(ctx, "nobody", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	h.addUser(t, "dave", "pw")
	_, err = h.login.Login(ctx, "dave", "pw")
	require.ErrorIs(t, err, ErrNoGrants)

	// A role outside the policy is still a grant, just without scopes
	h.addUser(t, "erin", "pw", "auditor")
	p, err := h.login.Login(ctx, "erin", "pw")
	require.NoError(t, err)
	require.Equal(t, []string{"AUDITOR"}, p.Roles)
	require.Empty(t, p.Scopes)
}
