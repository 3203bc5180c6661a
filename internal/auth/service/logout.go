package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// LogoutService ends sessions on request of their owner.
type LogoutService struct {
	Validator     *TokenValidator
	Blacklist     *TokenBlacklist
	RefreshTokens store.RefreshTokens
	Sessions      *SessionManager
}

// Logout revokes the caller's access token and, when given, the refresh
// token of the same session.
func (s *LogoutService) Logout(ctx context.Context, access domain.TokenClaims, refreshToken string) error {
	if err := s.Blacklist.Revoke(ctx, access.TokenID, access.ExpiresAt); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}

	claims, err := s.Validator.Validate(refreshToken)
	if err != nil {
		return err
	}
	if claims.Use != domain.TokenUseRefresh {
		return invalidToken(errWrongTokenUse)
	}
	if claims.Subject != access.Subject {
		return invalidToken(errSubjectMismatch)
	}

	if err := s.Blacklist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return err
	}
	if err := s.RefreshTokens.Delete(ctx, claims.TokenID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("refresh delete", err)
	}
	return s.Sessions.Unregister(ctx, claims.Subject, claims.TokenID)
}

// LogoutAll revokes the caller's access token and every session of the
// subject. It returns how many sessions ended.
func (s *LogoutService) LogoutAll(ctx context.Context, access domain.TokenClaims) (int, error) {
	if err := s.Blacklist.Revoke(ctx, access.TokenID, access.ExpiresAt); err != nil {
		return 0, err
	}

	ended, err := s.Sessions.RevokeAll(ctx, access.Subject)
	if err != nil {
		return 0, err
	}
	return len(ended), nil
}
