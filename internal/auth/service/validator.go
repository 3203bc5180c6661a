package service

import (
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

type ValidatorConfig struct {
	Algorithm       string
	Issuer          string
	AccessAudience  string
	RefreshAudience string
	ClockSkew       time.Duration
}

// TokenValidator checks signature and claims. Every failure comes back as
// an *InvalidTokenError.
type TokenValidator struct {
	verifier *jwtx.Verifier
}

func NewTokenValidator(keys *jwtx.KeySet, clock clockx.Clock, cfg ValidatorConfig) *TokenValidator {
	return &TokenValidator{
		verifier: jwtx.NewVerifier(keys, jwtx.VerifyOptions{
			Algorithm:       cfg.Algorithm,
			Issuer:          cfg.Issuer,
			AccessAudience:  cfg.AccessAudience,
			RefreshAudience: cfg.RefreshAudience,
			Leeway:          cfg.ClockSkew,
			Now:             clock.Now,
		}),
	}
}

func (v *TokenValidator) Validate(token string) (domain.TokenClaims, error) {
	c, err := v.verifier.Verify(token)
	if err != nil {
		return domain.TokenClaims{}, invalidToken(err)
	}

	out := domain.TokenClaims{
		Subject:   c.Subject,
		TokenID:   c.ID,
		Issuer:    c.Issuer,
		Audience:  []string(c.Audience),
		ExpiresAt: c.ExpiresAt.Time,
		Roles:     c.Roles,
		Scopes:    c.Scopes,
		Use:       domain.TokenUse(c.TokenUse),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.NotBefore != nil {
		nbf := c.NotBefore.Time
		out.NotBefore = &nbf
	}
	return out, nil
}
