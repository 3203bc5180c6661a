package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/google/uuid"
)

// Authenticator exchanges credentials for a token pair.
type Authenticator interface {
	Login(ctx context.Context, subject, password string) (domain.IssuedTokenPair, error)
}

// LoginService runs the password login: lockout check, credential check,
// grant resolution, issuance, then persistence of the new refresh token and
// its session.
type LoginService struct {
	Lockout       *LoginAttemptPolicy
	Credentials   CredentialChecker
	Resolver      *RoleScopeResolver
	Issuer        *TokenIssuer
	RefreshTokens store.RefreshTokens
	Sessions      *SessionManager
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (s *LoginService) Login(ctx context.Context, subject, password string) (domain.IssuedTokenPair, error) {
	locked, err := s.Lockout.IsLocked(ctx, subject)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}
	if locked {
		return domain.IssuedTokenPair{}, ErrSubjectLocked
	}

	user, err := s.Credentials.Check(ctx, subject, password)
	if errors.Is(err, ErrInvalidCredentials) {
		decision, lerr := s.Lockout.RecordFailure(ctx, subject)
		if lerr != nil {
			return domain.IssuedTokenPair{}, lerr
		}
		if decision.Locked {
			return domain.IssuedTokenPair{}, ErrSubjectLocked
		}
		return domain.IssuedTokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}

	if err := s.Lockout.Reset(ctx, subject); err != nil {
		return domain.IssuedTokenPair{}, err
	}

	grants := s.Resolver.Resolve(user.Subject, user.Roles)
	if grants.Empty() {
		return domain.IssuedTokenPair{}, ErrNoGrants
	}

	pair, err := s.Issuer.Issue(user.Subject, grants, s.AccessTTL, s.RefreshTTL)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}

	// Every login starts a new family
	err = s.RefreshTokens.Save(ctx, domain.RefreshTokenRecord{
		TokenID:   pair.RefreshTokenID,
		FamilyID:  uuid.NewString(),
		Subject:   pair.Subject,
		IssuedAt:  pair.IssuedAt,
		ExpiresAt: pair.RefreshExpiry,
	})
	if err != nil {
		return domain.IssuedTokenPair{}, storeErr("refresh save", err)
	}

	if _, err := s.Sessions.Register(ctx, pair.Subject, pair.RefreshTokenID, pair.RefreshExpiry); err != nil {
		return domain.IssuedTokenPair{}, err
	}

	return pair, nil
}
