package service

import (
	"context"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// AccessVerifier accepts access tokens that validate and are not blacklisted.
type AccessVerifier struct {
	Validator *TokenValidator
	Blacklist *TokenBlacklist
}

func (v *AccessVerifier) Verify(ctx context.Context, token string) (domain.TokenClaims, error) {
	claims, err := v.Validator.Validate(token)
	if err != nil {
		return domain.TokenClaims{}, err
	}
	if claims.Use != domain.TokenUseAccess {
		return domain.TokenClaims{}, invalidToken(errWrongTokenUse)
	}

	revoked, err := v.Blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return domain.TokenClaims{}, err
	}
	if revoked {
		return domain.TokenClaims{}, invalidToken(errRevoked)
	}
	return claims, nil
}
