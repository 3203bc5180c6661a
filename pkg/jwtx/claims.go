package jwtx

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use values carried in the "token_use" claim.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Default token TTL constants. Short access, long refresh.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the claims carried by both access and refresh tokens. Refresh
// tokens never carry roles or scopes.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse is "access" or "refresh".
	TokenUse string `json:"token_use,omitempty"`

	// Roles in canonical form, e.g. ["ADMIN"]
	Roles []string `json:"roles,omitempty"`

	// Permission Scopes "profile:read, profile:write"
	Scopes []string `json:"scopes,omitempty"`
}

// NewAccessClaims builds the claims for an access token.
func NewAccessClaims(
	subject, jti, issuer string,
	audience, roles, scopes []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		TokenUse: TokenUseAccess,
		Roles:    roles,
		Scopes:   scopes,
	}
}

// NewRefreshClaims builds the claims for a refresh token.
func NewRefreshClaims(
	subject, jti, issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		TokenUse: TokenUseRefresh,
	}
}

// ValidateTimes checks exp, iat and nbf against now with a symmetric leeway.
// exp is mandatory.
func (c *Claims) ValidateTimes(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrMissingExpiry
	}

	// exp must not be before now - leeway
	if c.ExpiresAt.Before(now.Add(-leeway)) {
		return ErrExpired
	}

	if c.IssuedAt != nil && c.IssuedAt.After(now.Add(leeway)) {
		return ErrIssuedInFuture
	}

	if c.NotBefore != nil && c.NotBefore.After(now.Add(leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks that the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil
	}

	if slices.Contains(c.Audience, expected) {
		return nil
	}

	return ErrAudience
}

// ValidateTokenUse requires a known token_use value.
func (c *Claims) ValidateTokenUse() error {
	switch c.TokenUse {
	case TokenUseAccess, TokenUseRefresh:
		return nil
	default:
		return ErrTokenUse
	}
}

// ValidateRequired checks that sub and jti are present.
func (c *Claims) ValidateRequired() error {
	switch {
	case c.Subject == "":
		return fmt.Errorf("%w: sub", ErrMissingClaim)
	case c.ID == "":
		return fmt.Errorf("%w: jti", ErrMissingClaim)
	}
	return nil
}

// ValidateShape cross-checks the grants against token_use: access tokens
// need at least one role or scope, refresh tokens must have none.
func (c *Claims) ValidateShape() error {
	granted := len(c.Roles) > 0 || len(c.Scopes) > 0

	if c.TokenUse == TokenUseAccess && !granted {
		return ErrClaimShape
	}
	if c.TokenUse == TokenUseRefresh && granted {
		return ErrClaimShape
	}

	return nil
}
