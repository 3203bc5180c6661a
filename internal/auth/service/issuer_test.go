package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTripAndClaimSeparation(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	grants := domain.Grants{Roles: []string{"ADMIN"}, Scopes: []string{"profile:read"}}

	pair, err := h.issuer.Issue("alice", grants, testAccessTTL, testRefreshTTL)
	require.NoError(t, err)

	require.Equal(t, start, pair.IssuedAt)
	require.Equal(t, start.Add(testAccessTTL), pair.AccessExpiry)
	require.Equal(t, start.Add(testRefreshTTL), pair.RefreshExpiry)
	require.NotEqual(t, pair.AccessTokenID, pair.RefreshTokenID)

	access, err := h.validator.Validate(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.TokenUseAccess, access.Use)
	require.Equal(t, "alice", access.Subject)
	require.Equal(t, pair.AccessTokenID, access.TokenID)
	require.Equal(t, grants.Roles, access.Roles)
	require.Equal(t, grants.Scopes, access.Scopes)
	require.Equal(t, []string{testAccessAud}, access.Audience)
	require.True(t, access.ExpiresAt.Equal(pair.AccessExpiry))

	refresh, err := h.validator.Validate(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, domain.TokenUseRefresh, refresh.Use)
	require.Equal(t, pair.RefreshTokenID, refresh.TokenID)
	require.Empty(t, refresh.Roles)
	require.Empty(t, refresh.Scopes)
	require.Equal(t, []string{testRefreshAud}, refresh.Audience)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	grants := domain.Grants{Roles: []string{"ADMIN"}}

	_, err := h.issuer.Issue("alice", domain.Grants{}, testAccessTTL, testRefreshTTL)
	require.ErrorIs(t, err, ErrNoGrants)

	_, err = h.issuer.Issue("", grants, testAccessTTL, testRefreshTTL)
	require.Error(t, err)

	// Access outliving refresh breaks the chronology
	_, err = h.issuer.Issue("alice", grants, time.Hour, time.Minute)
	require.ErrorIs(t, err, domain.ErrChronology)

	_, err = h.issuer.Issue("alice", grants, 0, time.Hour)
	require.Error(t, err)
}

func TestTokenIssuer_RefreshAudienceFallback(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.issuer.Config.RefreshAudience = ""

	pair, err := h.issuer.Issue("alice", domain.Grants{Roles: []string{"ADMIN"}}, testAccessTTL, testRefreshTTL)
	require.NoError(t, err)

	v := NewTokenValidator(h.keys.KeySet, h.clock, ValidatorConfig{
		Algorithm:      h.keys.Algorithm(),
		Issuer:         testIssuer,
		AccessAudience: testAccessAud,
	})
	claims, err := v.Validate(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, []string{testAccessAud}, claims.Audience)
}

func TestTokenIssuer_IssueAccessCap(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	grants := domain.Grants{Scopes: []string{"profile:read"}}

	tok, err := h.issuer.IssueAccess("alice", grants, testAccessTTL, time.Time{})
	require.NoError(t, err)
	require.Equal(t, start.Add(testAccessTTL), tok.ExpiresAt)

	tok, err = h.issuer.IssueAccess("alice", grants, testAccessTTL, start.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, start.Add(time.Minute), tok.ExpiresAt)

	claims, err := h.validator.Validate(tok.Token)
	require.NoError(t, err)
	require.True(t, claims.ExpiresAt.Equal(start.Add(time.Minute)))

	_, err = h.issuer.IssueAccess("alice", grants, testAccessTTL, start)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenValidator_RejectionIsOpaque(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	pair, err := h.issuer.Issue("alice", domain.Grants{Roles: []string{"ADMIN"}}, testAccessTTL, testRefreshTTL)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		before func()
		reason error
	}{
		{"malformed", "not-a-jwt", nil, jwtx.ErrMalformed},
		{"tampered signature", pair.AccessToken[:len(pair.AccessToken)-4] + "AAAA", nil, jwtx.ErrInvalidSig},
		{"expired", pair.AccessToken, func() { h.clock.Advance(testAccessTTL + time.Second) }, jwtx.ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.before != nil {
				tt.before()
			}

			_, err := h.validator.Validate(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
			require.NotErrorIs(t, err, tt.reason)
			require.ErrorIs(t, RejectionReason(err), tt.reason)
			require.Equal(t, "invalid_token", err.Error())
		})
	}
}
