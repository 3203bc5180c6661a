package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	testIssuer        = "https://auth.example.test"
	testAccessAud     = "api"
	testRefreshAud    = "auth"
	testAccessTTL     = 15 * time.Minute
	testRefreshTTL    = 24 * time.Hour
	testLockDuration  = 10 * time.Minute
	alicePassword     = "correct-pw"
	testHasherPepper  = "pepper"
	testFailureWindow = time.Hour
)

var testPolicy = domain.ScopePolicy{
	"ADMIN": {"profile:read", "admin:keys"},
	"USER":  {"profile:read"},
}

type harnessOptions struct {
	rotation    bool
	maxSessions int
	threshold   int
}

type harness struct {
	clock         *clockx.Fake
	keys          *jwtx.KeyManager
	hasher        *cryptox.PasswordHasher
	users         *memory.Users
	refreshTokens *memory.RefreshTokens

	issuer    *TokenIssuer
	validator *TokenValidator
	blacklist *TokenBlacklist
	sessions  *SessionManager
	lockout   *LoginAttemptPolicy
	login     *LoginService
	refresh   *RefreshService
	logout    *LogoutService
	access    *AccessVerifier
}

func newHarness(t *testing.T, o harnessOptions) *harness {
	t.Helper()

	clock := clockx.NewFake(start)

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: "HMAC"})
	require.NoError(t, err)

	blacklistStore := memory.NewBlacklist(clock)
	guard := memory.NewConsumptionGuard(clock)
	t.Cleanup(func() {
		_ = blacklistStore.Close()
		_ = guard.Close()
	})

	h := &harness{
		clock:         clock,
		keys:          keys,
		hasher:        cryptox.NewPasswordHasher(testHasherPepper),
		users:         memory.NewUsers(),
		refreshTokens: memory.NewRefreshTokens(),
	}

	h.issuer = &TokenIssuer{
		Keys:  keys,
		Clock: clock,
		Config: IssuerConfig{
			Issuer:          testIssuer,
			AccessAudience:  testAccessAud,
			RefreshAudience: testRefreshAud,
		},
	}
	h.validator = NewTokenValidator(keys.KeySet, clock, ValidatorConfig{
		Algorithm:       keys.Algorithm(),
		Issuer:          testIssuer,
		AccessAudience:  testAccessAud,
		RefreshAudience: testRefreshAud,
		ClockSkew:       0,
	})
	h.blacklist = &TokenBlacklist{Store: blacklistStore, Clock: clock}
	h.sessions = NewSessionManager(memory.NewSessions(clock), h.refreshTokens, h.blacklist, o.maxSessions)
	h.lockout = &LoginAttemptPolicy{
		Store: memory.NewLoginAttempts(clock),
		Clock: clock,
		Config: LockoutConfig{
			Threshold:    o.threshold,
			LockDuration: testLockDuration,
			Window:       testFailureWindow,
		},
	}

	creds, err := NewDirectoryCredentials(h.users, h.hasher)
	require.NoError(t, err)
	resolver := NewRoleScopeResolver(testPolicy)

	h.login = &LoginService{
		Lockout:       h.lockout,
		Credentials:   creds,
		Resolver:      resolver,
		Issuer:        h.issuer,
		RefreshTokens: h.refreshTokens,
		Sessions:      h.sessions,
		AccessTTL:     testAccessTTL,
		RefreshTTL:    testRefreshTTL,
	}
	h.refresh = &RefreshService{
		Validator:       h.validator,
		RefreshTokens:   h.refreshTokens,
		Guard:           guard,
		Blacklist:       h.blacklist,
		Sessions:        h.sessions,
		Users:           h.users,
		Resolver:        resolver,
		Issuer:          h.issuer,
		Clock:           clock,
		RefreshAudience: testRefreshAud,
		Rotation:        o.rotation,
		AccessTTL:       testAccessTTL,
		RefreshTTL:      testRefreshTTL,
	}
	h.logout = &LogoutService{
		Validator:     h.validator,
		Blacklist:     h.blacklist,
		RefreshTokens: h.refreshTokens,
		Sessions:      h.sessions,
	}
	h.access = &AccessVerifier{Validator: h.validator, Blacklist: h.blacklist}

	h.addUser(t, "alice", alicePassword, "role_admin")
	return h
}

func (h *harness) addUser(t *testing.T, subject, password string, roles ...string) {
	t.Helper()

	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)
	require.NoError(t, h.users.Create(context.Background(), domain.User{
		Subject:      subject,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    start,
	}))
}

func (h *harness) mustLogin(t *testing.T) domain.IssuedTokenPair {
	t.Helper()

	pair, err := h.login.Login(context.Background(), "alice", alicePassword)
	require.NoError(t, err)
	return pair
}
