package domain

import (
	"errors"
	"fmt"
	"time"
)

// TokenUse distinguishes access from refresh tokens.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// ErrChronology is returned when a token pair's instants are out of order.
var ErrChronology = errors.New("domain: token pair violates issuedAt <= accessExpiry <= refreshExpiry")

// IssuedTokenPair is what login and refresh hand back to the caller. Build it
// with NewIssuedTokenPair so the chronology always holds.
type IssuedTokenPair struct {
	Subject        string
	AccessToken    string
	AccessTokenID  string
	RefreshToken   string
	RefreshTokenID string
	IssuedAt       time.Time
	AccessExpiry   time.Time
	RefreshExpiry  time.Time
	Roles          []string
	Scopes         []string
}

// NewIssuedTokenPair validates p and returns it.
func NewIssuedTokenPair(p IssuedTokenPair) (IssuedTokenPair, error) {
	if p.AccessExpiry.Before(p.IssuedAt) || p.RefreshExpiry.Before(p.AccessExpiry) {
		return IssuedTokenPair{}, fmt.Errorf("%w: iat=%s access=%s refresh=%s",
			ErrChronology, p.IssuedAt, p.AccessExpiry, p.RefreshExpiry)
	}
	return p, nil
}

// TokenClaims is the decoded, validated view of a token.
type TokenClaims struct {
	Subject   string
	TokenID   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore *time.Time
	Roles     []string
	Scopes    []string
	Use       TokenUse
}
