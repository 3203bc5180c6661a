package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h := cryptox.NewPasswordHasher("pepper")

	hash, err := h.Hash("correct-pw")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, h.Verify("correct-pw", hash))
	require.ErrorIs(t, h.Verify("wrong-pw", hash), cryptox.ErrPasswordMismatch)
}

func TestHash_UniqueSalts(t *testing.T) {
	h := cryptox.NewPasswordHasher("")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b, "salts should differ")
}

func TestVerify_UsesEncodedParameters(t *testing.T) {
	h := cryptox.NewPasswordHasher("")

	// Hashes made with other parameters are still understood, here a
	// digest that does not match rather than an unreadable hash
	legacy := "$argon2id$v=19$m=1024,t=1,p=1$c29tZXNhbHQ$yGJdIYLlDLMm0yNeHOmYJyZnOtw6oOIdpS8jd9bG7Hk"
	require.ErrorIs(t, h.Verify("pw", legacy), cryptox.ErrPasswordMismatch)
}

func TestVerify_PepperMatters(t *testing.T) {
	hash, err := cryptox.NewPasswordHasher("one").Hash("pw")
	require.NoError(t, err)

	// Same password, different pepper, must not verify
	require.Error(t, cryptox.NewPasswordHasher("two").Verify("pw", hash))
}

func TestVerify_InvalidHashFormat(t *testing.T) {
	h := cryptox.NewPasswordHasher("")

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$nonsense$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"},
		{"zero memory", "$argon2id$v=19$m=0,t=2,p=1$c2FsdA$aGFzaA"},
		{"empty digest", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, h.Verify("pw", tt.hash), cryptox.ErrInvalidHash)
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := cryptox.GeneratePassword()
	require.NoError(t, err)
	require.Len(t, a, 16)

	b, err := cryptox.GeneratePassword()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestLoadOrCreatePepper(t *testing.T) {
	t.Run("empty path means no pepper", func(t *testing.T) {
		p, err := cryptox.LoadOrCreatePepper("")
		require.NoError(t, err)
		require.Empty(t, p)
	})

	t.Run("creates then reloads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secrets", "pepper")

		first, err := cryptox.LoadOrCreatePepper(path)
		require.NoError(t, err)
		require.NotEmpty(t, first)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())

		second, err := cryptox.LoadOrCreatePepper(path)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})
}
