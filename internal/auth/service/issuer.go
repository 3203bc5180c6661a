package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// KeySource signs claims with the current key. jwtx.KeyManager implements it.
type KeySource interface {
	Sign(claims jwtx.Claims) (string, error)
	CurrentKeyID() string
}

type IssuerConfig struct {
	Issuer          string
	AccessAudience  string
	RefreshAudience string // AccessAudience when empty
}

// TokenIssuer builds and signs token pairs. It persists nothing.
type TokenIssuer struct {
	Keys   KeySource
	Clock  clockx.Clock
	Config IssuerConfig
}

// AccessToken is a freshly signed access token.
type AccessToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs an access and a refresh token for subject. Access tokens carry
// the grants, refresh tokens never do.
func (i *TokenIssuer) Issue(
	subject string,
	grants domain.Grants,
	accessTTL, refreshTTL time.Duration,
) (domain.IssuedTokenPair, error) {
	if err := i.check(subject, grants, accessTTL); err != nil {
		return domain.IssuedTokenPair{}, err
	}
	if refreshTTL <= 0 {
		return domain.IssuedTokenPair{}, fmt.Errorf("issuer: refresh ttl must be positive, got %s", refreshTTL)
	}

	// JWT timestamps have second precision
	now := i.Clock.Now().Truncate(time.Second)

	// Checked before signing so nothing is minted for a broken pair
	if _, err := domain.NewIssuedTokenPair(domain.IssuedTokenPair{
		IssuedAt:      now,
		AccessExpiry:  now.Add(accessTTL),
		RefreshExpiry: now.Add(refreshTTL),
	}); err != nil {
		return domain.IssuedTokenPair{}, err
	}

	access, err := i.signAccess(subject, grants, now, now.Add(accessTTL))
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}

	refreshID := idx.TokenID(now)
	refreshClaims := jwtx.NewRefreshClaims(subject, refreshID, i.Config.Issuer,
		[]string{i.refreshAudience()}, refreshTTL, now)
	refresh, err := i.Keys.Sign(refreshClaims)
	if err != nil {
		return domain.IssuedTokenPair{}, fmt.Errorf("issuer: sign refresh token: %w", err)
	}

	return domain.NewIssuedTokenPair(domain.IssuedTokenPair{
		Subject:        subject,
		AccessToken:    access.Token,
		AccessTokenID:  access.ID,
		RefreshToken:   refresh,
		RefreshTokenID: refreshID,
		IssuedAt:       now,
		AccessExpiry:   access.ExpiresAt,
		RefreshExpiry:  now.Add(refreshTTL),
		Roles:          grants.Roles,
		Scopes:         grants.Scopes,
	})
}

// IssueAccess signs an access token only. Its expiry is capped at notAfter
// when notAfter is set, so it never outlives the refresh token it came from.
func (i *TokenIssuer) IssueAccess(
	subject string,
	grants domain.Grants,
	ttl time.Duration,
	notAfter time.Time,
) (AccessToken, error) {
	if err := i.check(subject, grants, ttl); err != nil {
		return AccessToken{}, err
	}

	now := i.Clock.Now().Truncate(time.Second)
	exp := now.Add(ttl)
	if !notAfter.IsZero() && notAfter.Before(exp) {
		exp = notAfter
	}
	if !exp.After(now) {
		return AccessToken{}, ErrTokenExpired
	}

	return i.signAccess(subject, grants, now, exp)
}

func (i *TokenIssuer) signAccess(subject string, grants domain.Grants, now, exp time.Time) (AccessToken, error) {
	id := idx.TokenID(now)
	claims := jwtx.NewAccessClaims(subject, id, i.Config.Issuer, []string{i.Config.AccessAudience},
		grants.Roles, grants.Scopes, exp.Sub(now), now)

	token, err := i.Keys.Sign(claims)
	if err != nil {
		return AccessToken{}, fmt.Errorf("issuer: sign access token: %w", err)
	}

	return AccessToken{Token: token, ID: id, IssuedAt: now, ExpiresAt: exp}, nil
}

func (i *TokenIssuer) check(subject string, grants domain.Grants, accessTTL time.Duration) error {
	if subject == "" {
		return errors.New("issuer: empty subject")
	}
	if grants.Empty() {
		return ErrNoGrants
	}
	if accessTTL <= 0 {
		return fmt.Errorf("issuer: access ttl must be positive, got %s", accessTTL)
	}
	return nil
}

func (i *TokenIssuer) refreshAudience() string {
	if i.Config.RefreshAudience != "" {
		return i.Config.RefreshAudience
	}
	return i.Config.AccessAudience
}
