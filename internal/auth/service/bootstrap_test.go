package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	hasher := cryptox.NewPasswordHasher(testHasherPepper)
	b := &BootstrapService{Users: users, Hasher: hasher, Clock: clockx.NewFake(start)}

	pw, err := b.Bootstrap(ctx, "root", "", []string{"role_admin", " "})
	require.NoError(t, err)
	require.NotEmpty(t, pw)

	u, err := users.FindBySubject(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, []string{"ADMIN"}, u.Roles)
	require.Equal(t, start, u.CreatedAt)
	require.NoError(t, hasher.Verify(pw, u.PasswordHash))

	_, err = b.Bootstrap(ctx, "other", "pw", []string{"admin"})
	require.ErrorIs(t, err, ErrBootstrapAlready)
}

func TestBootstrapKeepsGivenPassword(t *testing.T) {
	b := &BootstrapService{
		Users:  memory.NewUsers(),
		Hasher: cryptox.NewPasswordHasher(testHasherPepper),
		Clock:  clockx.NewFake(start),
	}

	pw, err := b.Bootstrap(context.Background(), "root", "s3cret", []string{"admin"})
	require.NoError(t, err)
	require.Equal(t, "s3cret", pw)
}
