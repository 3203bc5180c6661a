package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoginRefreshReuseScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})

	p1 := h.mustLogin(t)
	require.Equal(t, []string{"ADMIN"}, p1.Roles)
	require.Equal(t, []string{"profile:read", "admin:keys"}, p1.Scopes)

	h.clock.Advance(time.Minute)
	p2, err := h.refresh.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, p1.RefreshTokenID, p2.RefreshTokenID)
	require.Equal(t, []string{"ADMIN"}, p2.Roles)

	old, err := h.refreshTokens.FindByID(ctx, p1.RefreshTokenID)
	require.NoError(t, err)
	require.True(t, old.Revoked)

	next, err := h.refreshTokens.FindByID(ctx, p2.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, old.FamilyID, next.FamilyID)
	require.Equal(t, p1.RefreshTokenID, next.PreviousTokenID)

	// Replaying P1 is theft
	_, err = h.refresh.Refresh(ctx, p1.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenReuse)
	var reuse *ReuseDetectedError
	require.ErrorAs(t, err, &reuse)
	require.Equal(t, "alice", reuse.Subject)
	require.Equal(t, old.FamilyID, reuse.FamilyID)
	require.Equal(t, 2, reuse.Revoked)

	// and takes P2 down with it
	_, err = h.refresh.Refresh(ctx, p2.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenReuse)

	sessions, err := h.sessions.List(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestRefresh_ReuseRevokesLaterTokens(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})

	p1 := h.mustLogin(t)
	p2, err := h.refresh.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)
	p3, err := h.refresh.Refresh(ctx, p2.RefreshToken)
	require.NoError(t, err)

	// An unrelated login is a different family
	other := h.mustLogin(t)

	_, err = h.refresh.Refresh(ctx, p1.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenReuse)

	rec, err := h.refreshTokens.FindByID(ctx, p3.RefreshTokenID)
	require.NoError(t, err)
	require.True(t, rec.Revoked)

	_, err = h.refresh.Refresh(ctx, p3.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenReuse)

	_, err = h.refresh.Refresh(ctx, other.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentDuplicatesRotateOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})
	p1 := h.mustLogin(t)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.refresh.Refresh(ctx, p1.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Len(t, failures, n-1)
	for _, err := range failures {
		require.True(t, errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshTokenReuse), err)
	}
}

func TestRefresh_RotationDisabled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: false})
	p1 := h.mustLogin(t)

	for range 3 {
		h.clock.Advance(time.Minute)
		p, err := h.refresh.Refresh(ctx, p1.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, p1.RefreshToken, p.RefreshToken)
		require.Equal(t, p1.RefreshTokenID, p.RefreshTokenID)
		require.NotEqual(t, p1.AccessTokenID, p.AccessTokenID)
		require.Equal(t, h.clock.Now().Add(testAccessTTL), p.AccessExpiry)
	}

	rec, err := h.refreshTokens.FindByID(ctx, p1.RefreshTokenID)
	require.NoError(t, err)
	require.False(t, rec.Revoked)

	// Close to the end the access token is capped at the refresh expiry
	h.clock.Set(p1.RefreshExpiry.Add(-5 * time.Minute))
	p, err := h.refresh.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, p1.RefreshExpiry, p.AccessExpiry)
	require.Equal(t, p1.RefreshExpiry, p.RefreshExpiry)
}

func TestRefresh_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("access token presented", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		p := h.mustLogin(t)

		_, err := h.refresh.Refresh(ctx, p.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, RejectionReason(err), errWrongTokenUse)
	})

	t.Run("record missing", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		p := h.mustLogin(t)
		require.NoError(t, h.refreshTokens.Delete(ctx, p.RefreshTokenID))

		_, err := h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("token at exp", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		p := h.mustLogin(t)

		// The signature check still accepts exp == now; the record does not
		h.clock.Set(p.RefreshExpiry)
		_, err := h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("token past exp", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		p := h.mustLogin(t)

		h.clock.Set(p.RefreshExpiry.Add(time.Second))
		_, err := h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, RejectionReason(err), jwtx.ErrExpired)
	})

	t.Run("record expired before token", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		p := h.mustLogin(t)

		rec, err := h.refreshTokens.FindByID(ctx, p.RefreshTokenID)
		require.NoError(t, err)
		require.NoError(t, h.refreshTokens.Delete(ctx, rec.TokenID))
		rec.ExpiresAt = start.Add(time.Minute)
		require.NoError(t, h.refreshTokens.Save(ctx, rec))

		h.clock.Advance(time.Minute)
		_, err = h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("subject lost its roles", func(t *testing.T) {
		h := newHarness(t, harnessOptions{rotation: true})
		h.addUser(t, "carol", "pw", "user")
		p, err := h.login.Login(ctx, "carol", "pw")
		require.NoError(t, err)

		h.refresh.Users = userDirectory{"carol": {Subject: "carol"}}
		_, err = h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrNoGrants)

		h.refresh.Users = userDirectory{}
		_, err = h.refresh.Refresh(ctx, p.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefresh_StoreFailureIsNotInvalidToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{rotation: true})
	p := h.mustLogin(t)

	h.refresh.RefreshTokens = brokenRefreshTokens{}
	_, err := h.refresh.Refresh(ctx, p.RefreshToken)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.NotErrorIs(t, err, ErrInvalidToken)
}

type userDirectory map[string]domain.User

func (d userDirectory) FindBySubject(_ context.Context, subject string) (domain.User, error) {
	u, ok := d[subject]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (d userDirectory) Create(context.Context, domain.User) error { return nil }
func (d userDirectory) Count(context.Context) (int, error)        { return len(d), nil }

type brokenRefreshTokens struct{}

var errConnRefused = errors.New("dial tcp: connection refused")

func broken() error { return errors.Join(store.ErrUnavailable, errConnRefused) }

func (brokenRefreshTokens) Save(context.Context, domain.RefreshTokenRecord) error { return broken() }
func (brokenRefreshTokens) FindByID(context.Context, string) (domain.RefreshTokenRecord, error) {
	return domain.RefreshTokenRecord{}, broken()
}
func (brokenRefreshTokens) Revoke(context.Context, string) error { return broken() }
func (brokenRefreshTokens) RevokeFamily(context.Context, string) ([]domain.RefreshTokenRecord, error) {
	return nil, broken()
}
func (brokenRefreshTokens) Delete(context.Context, string) error { return broken() }
func (brokenRefreshTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, broken()
}

// hookedRefreshTokens runs a callback before selected calls and can fail the
// next Save or Revoke once.
type hookedRefreshTokens struct {
	store.RefreshTokens

	beforeSave   func()
	beforeRevoke func()
	failSave     bool
	failRevoke   bool
}

func (h *hookedRefreshTokens) Save(ctx context.Context, r domain.RefreshTokenRecord) error {
	if f := h.beforeSave; f != nil {
		h.beforeSave = nil
		f()
	}
	if h.failSave {
		h.failSave = false
		return broken()
	}
	return h.RefreshTokens.Save(ctx, r)
}

func (h *hookedRefreshTokens) Revoke(ctx context.Context, tokenID string) error {
	if f := h.beforeRevoke; f != nil {
		h.beforeRevoke = nil
		f()
	}
	if h.failRevoke {
		h.failRevoke = false
		return broken()
	}
	return h.RefreshTokens.Revoke(ctx, tokenID)
}

func TestRefresh_ReuseDuringRotation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, *hookedRefreshTokens, domain.IssuedTokenPair, domain.IssuedTokenPair) {
		h := newHarness(t, harnessOptions{rotation: true})
		p1 := h.mustLogin(t)
		p2, err := h.refresh.Refresh(ctx, p1.RefreshToken)
		require.NoError(t, err)

		hooked := &hookedRefreshTokens{RefreshTokens: h.refreshTokens}
		h.refresh.RefreshTokens = hooked
		return h, hooked, p1, p2
	}

	t.Run("family revoked before successor is saved", func(t *testing.T) {
		h, hooked, p1, p2 := setup(t)

		var replayErr error
		hooked.beforeSave = func() { _, replayErr = h.refresh.Refresh(ctx, p1.RefreshToken) }

		_, err := h.refresh.Refresh(ctx, p2.RefreshToken)
		require.ErrorIs(t, replayErr, ErrRefreshTokenReuse)
		require.ErrorIs(t, err, ErrRefreshTokenReuse)

		rec, err := h.refreshTokens.FindByID(ctx, p2.RefreshTokenID)
		require.NoError(t, err)
		require.True(t, rec.Revoked)

		sessions, err := h.sessions.List(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, sessions)
	})

	t.Run("family revoked after successor is saved", func(t *testing.T) {
		h, hooked, p1, p2 := setup(t)

		var replayErr error
		hooked.beforeRevoke = func() { _, replayErr = h.refresh.Refresh(ctx, p1.RefreshToken) }

		p3, err := h.refresh.Refresh(ctx, p2.RefreshToken)
		require.NoError(t, err)
		require.ErrorIs(t, replayErr, ErrRefreshTokenReuse)

		// The successor went down with its family
		rec, err := h.refreshTokens.FindByID(ctx, p3.RefreshTokenID)
		require.NoError(t, err)
		require.True(t, rec.Revoked)

		_, err = h.refresh.Refresh(ctx, p3.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshTokenReuse)

		sessions, err := h.sessions.List(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, sessions)
	})
}

func TestRefresh_FailedRotationCanBeRetried(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		fail func(*hookedRefreshTokens)
	}{
		{"save fails", func(h *hookedRefreshTokens) { h.failSave = true }},
		{"revoke fails", func(h *hookedRefreshTokens) { h.failRevoke = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessOptions{rotation: true})
			p1 := h.mustLogin(t)

			hooked := &hookedRefreshTokens{RefreshTokens: h.refreshTokens}
			tt.fail(hooked)
			h.refresh.RefreshTokens = hooked

			_, err := h.refresh.Refresh(ctx, p1.RefreshToken)
			require.ErrorIs(t, err, ErrStoreUnavailable)
			require.NotErrorIs(t, err, ErrRefreshTokenReuse)

			rec, err := h.refreshTokens.FindByID(ctx, p1.RefreshTokenID)
			require.NoError(t, err)
			require.False(t, rec.Revoked)

			sessions, err := h.sessions.List(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			require.Equal(t, p1.RefreshTokenID, sessions[0].TokenID)

			p2, err := h.refresh.Refresh(ctx, p1.RefreshToken)
			require.NoError(t, err)

			sessions, err = h.sessions.List(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			require.Equal(t, p2.RefreshTokenID, sessions[0].TokenID)

			rec, err = h.refreshTokens.FindByID(ctx, p1.RefreshTokenID)
			require.NoError(t, err)
			require.True(t, rec.Revoked)
		})
	}
}
