package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*sqlite.Store, *clockx.Fake) {
	t.Helper()

	clock := clockx.NewFake(start)
	s, err := sqlite.NewStore(":memory:", clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s, clock
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "auth.db")

	for range 2 {
		s, err := sqlite.NewStore(dsn, clockx.System{})
		require.NoError(t, err)
		require.NoError(t, s.ApplyMigrations())
		require.NoError(t, s.Ping(context.Background()))
		require.NoError(t, s.Close())
	}
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	r := s.RefreshTokens()

	rec := func(id, fam, prev string, exp time.Time) domain.RefreshTokenRecord {
		return domain.RefreshTokenRecord{
			TokenID: id, FamilyID: fam, Subject: "alice", PreviousTokenID: prev,
			IssuedAt: start, ExpiresAt: exp,
		}
	}

	require.NoError(t, r.Save(ctx, rec("a", "f1", "", start.Add(time.Hour))))
	require.NoError(t, r.Save(ctx, rec("b", "f1", "a", start.Add(time.Hour))))
	require.NoError(t, r.Save(ctx, rec("c", "f2", "", start.Add(time.Minute))))
	require.ErrorIs(t, r.Save(ctx, rec("a", "f1", "", start)), store.ErrAlreadyExists)

	got, err := r.FindByID(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, rec("b", "f1", "a", start.Add(time.Hour)), got)

	_, err = r.FindByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, r.Revoke(ctx, "nope"), store.ErrNotFound)

	require.NoError(t, r.Revoke(ctx, "a"))
	got, err = r.FindByID(ctx, "a")
	require.NoError(t, err)
	require.True(t, got.Revoked)

	revoked, err := r.RevokeFamily(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, revoked, 2)
	for _, rr := range revoked {
		require.True(t, rr.Revoked)
	}

	got, err = r.FindByID(ctx, "c")
	require.NoError(t, err)
	require.False(t, got.Revoked)

	n, err := r.DeleteExpired(ctx, start.Add(30*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "a"))
	_, err = r.FindByID(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshTokensRevokedFamilyRefusesSave(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	r := s.RefreshTokens()

	rec := func(id, fam string) domain.RefreshTokenRecord {
		return domain.RefreshTokenRecord{
			TokenID: id, FamilyID: fam, Subject: "alice",
			IssuedAt: start, ExpiresAt: start.Add(time.Hour),
		}
	}

	require.NoError(t, r.Save(ctx, rec("a", "f1")))
	_, err := r.RevokeFamily(ctx, "f1")
	require.NoError(t, err)

	require.ErrorIs(t, r.Save(ctx, rec("b", "f1")), store.ErrFamilyRevoked)
	_, err = r.FindByID(ctx, "b")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, r.Save(ctx, rec("c", "f2")))

	// An id clash in a live family is still a clash
	require.ErrorIs(t, r.Save(ctx, rec("c", "f2")), store.ErrAlreadyExists)

	// A family with no records left is marked for a minute
	_, err = r.RevokeFamily(ctx, "empty")
	require.NoError(t, err)
	require.ErrorIs(t, r.Save(ctx, rec("d", "empty")), store.ErrFamilyRevoked)

	_, err = r.DeleteExpired(ctx, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.Save(ctx, rec("b", "f1")))
	require.NoError(t, r.Save(ctx, rec("d", "empty")))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	u := s.Users()

	n, err := u.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	alice := domain.User{Subject: "alice", PasswordHash: "$argon2id$x", Roles: []string{"ADMIN", "USER"}, CreatedAt: start}
	require.NoError(t, u.Create(ctx, alice))
	require.ErrorIs(t, u.Create(ctx, alice), store.ErrAlreadyExists)

	got, err := u.FindBySubject(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice, got)

	_, err = u.FindBySubject(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err = u.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLoginAttempts(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)
	la := s.LoginAttempts()

	st, err := la.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAttemptState{Subject: "alice"}, st)

	for want := 1; want <= 3; want++ {
		n, err := la.IncrementFailure(ctx, "alice", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}

	// A failure exactly one window after the first starts over
	clock.Advance(time.Minute)
	n, err := la.IncrementFailure(ctx, "alice", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	until := clock.Now().Add(15 * time.Minute)
	require.NoError(t, la.Lock(ctx, "alice", until))

	st, err = la.Get(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, st.FailureCount)
	require.True(t, st.LockedUntil.Equal(until))
	require.True(t, st.LockedAt(clock.Now()))

	require.NoError(t, la.Reset(ctx, "alice"))
	st, err = la.Get(ctx, "alice")
	require.NoError(t, err)
	require.False(t, st.LockedAt(clock.Now()))

	// Without a window failures keep accumulating
	for want := 1; want <= 2; want++ {
		n, err := la.IncrementFailure(ctx, "bob", 0)
		require.NoError(t, err)
		require.Equal(t, want, n)
		clock.Advance(time.Hour)
	}
}
