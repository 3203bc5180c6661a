package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.IssuedTokenPair, error)
}

// RefreshService rotates refresh tokens and detects reuse.
//
// A refresh token is ACTIVE until it is consumed by a rotation. Presenting a
// consumed token again is treated as theft: the whole family is revoked and
// the caller gets a ReuseDetectedError. Concurrent presentations of the same
// ACTIVE token are settled by the consumption guard, so exactly one of them
// rotates.
type RefreshService struct {
	Validator     *TokenValidator
	RefreshTokens store.RefreshTokens
	Guard         store.ConsumptionGuard
	Blacklist     *TokenBlacklist
	Sessions      *SessionManager
	Users         store.Users
	Resolver      *RoleScopeResolver
	Issuer        *TokenIssuer
	Clock         clockx.Clock

	RefreshAudience string
	Rotation        bool
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
}

func (s *RefreshService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedTokenPair, error) {
	claims, err := s.Validator.Validate(refreshToken)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}
	if claims.Use != domain.TokenUseRefresh {
		return domain.IssuedTokenPair{}, invalidToken(errWrongTokenUse)
	}
	if !slices.Contains(claims.Audience, s.RefreshAudience) {
		return domain.IssuedTokenPair{}, invalidToken(errWrongAudience)
	}

	record, err := s.RefreshTokens.FindByID(ctx, claims.TokenID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.IssuedTokenPair{}, ErrRefreshTokenNotFound
	}
	if err != nil {
		return domain.IssuedTokenPair{}, storeErr("refresh lookup", err)
	}

	if record.Revoked {
		return domain.IssuedTokenPair{}, s.revokeFamily(ctx, record)
	}

	now := s.Clock.Now()
	if record.ExpiredAt(now) {
		return domain.IssuedTokenPair{}, ErrTokenExpired
	}

	// Evicted sessions are blacklisted even if their record lingers
	revoked, err := s.Blacklist.IsRevoked(ctx, record.TokenID)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}
	if revoked {
		return domain.IssuedTokenPair{}, invalidToken(errRevoked)
	}

	grants, err := s.currentGrants(ctx, record.Subject)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}

	if !s.Rotation {
		return s.reissueAccess(record, refreshToken, grants)
	}
	return s.rotate(ctx, record, grants, now)
}

// rotate consumes record and issues its successor in the same family.
//
// The successor is saved before record is revoked. Any failure up to and
// including the revoke is undone and the guard released, so a retry with the
// same token is a fresh attempt rather than reuse.
func (s *RefreshService) rotate(
	ctx context.Context,
	record domain.RefreshTokenRecord,
	grants domain.Grants,
	now time.Time,
) (domain.IssuedTokenPair, error) {
	first, err := s.Guard.Consume(ctx, record.TokenID, record.Remaining(now))
	if err != nil {
		return domain.IssuedTokenPair{}, storeErr("consume", err)
	}
	if !first {
		return domain.IssuedTokenPair{}, invalidToken(errConsumed)
	}

	pair, err := s.Issuer.Issue(record.Subject, grants, s.AccessTTL, s.RefreshTTL)
	if err != nil {
		s.abandon(ctx, record, "")
		return domain.IssuedTokenPair{}, err
	}

	err = s.RefreshTokens.Save(ctx, domain.RefreshTokenRecord{
		TokenID:         pair.RefreshTokenID,
		FamilyID:        record.FamilyID,
		Subject:         record.Subject,
		IssuedAt:        pair.IssuedAt,
		ExpiresAt:       pair.RefreshExpiry,
		PreviousTokenID: record.TokenID,
	})
	if errors.Is(err, store.ErrFamilyRevoked) {
		// The family was revoked after record was read.
		return domain.IssuedTokenPair{}, s.revokeFamily(ctx, record)
	}
	if err != nil {
		s.abandon(ctx, record, "")
		return domain.IssuedTokenPair{}, storeErr("refresh save", err)
	}

	if _, err := s.Sessions.Rotate(ctx, record.Subject, record.TokenID, pair.RefreshTokenID, pair.RefreshExpiry); err != nil {
		s.abandon(ctx, record, pair.RefreshTokenID)
		return domain.IssuedTokenPair{}, err
	}

	if err := s.RefreshTokens.Revoke(ctx, record.TokenID); err != nil {
		s.abandon(ctx, record, pair.RefreshTokenID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.IssuedTokenPair{}, ErrRefreshTokenNotFound
		}
		return domain.IssuedTokenPair{}, storeErr("refresh revoke", err)
	}

	// A reuse of an older member that raced with this rotation has revoked
	// the successor too: it was saved into the family before the revoke.
	return pair, nil
}

// abandon undoes a rotation that failed before record was revoked, so record
// can be consumed again. A non-empty successorID means the successor was saved
// and its session registered in place of record's. Failures here are logged;
// the caller already has an error to return.
func (s *RefreshService) abandon(ctx context.Context, record domain.RefreshTokenRecord, successorID string) {
	ctx = context.WithoutCancel(ctx)
	l := slogx.FromContext(ctx).With(slog.String("refresh_id", record.TokenID))

	if successorID != "" {
		if _, err := s.Sessions.Rotate(ctx, record.Subject, successorID, record.TokenID, record.ExpiresAt); err != nil {
			l.Warn("failed to restore session", slog.Any("error", err))
		}
		if err := s.RefreshTokens.Delete(ctx, successorID); err != nil {
			l.Warn("failed to delete abandoned refresh token", slog.Any("error", err))
		}
	}
	if err := s.Guard.Release(ctx, record.TokenID); err != nil {
		l.Warn("failed to release consumption guard", slog.Any("error", err))
	}
}

// reissueAccess serves refresh with rotation disabled: a new access token,
// the same refresh token. The record stays usable.
func (s *RefreshService) reissueAccess(
	record domain.RefreshTokenRecord,
	refreshToken string,
	grants domain.Grants,
) (domain.IssuedTokenPair, error) {
	access, err := s.Issuer.IssueAccess(record.Subject, grants, s.AccessTTL, record.ExpiresAt)
	if err != nil {
		return domain.IssuedTokenPair{}, err
	}

	return domain.NewIssuedTokenPair(domain.IssuedTokenPair{
		Subject:        record.Subject,
		AccessToken:    access.Token,
		AccessTokenID:  access.ID,
		RefreshToken:   refreshToken,
		RefreshTokenID: record.TokenID,
		IssuedAt:       access.IssuedAt,
		AccessExpiry:   access.ExpiresAt,
		RefreshExpiry:  record.ExpiresAt,
		Roles:          grants.Roles,
		Scopes:         grants.Scopes,
	})
}

// revokeFamily handles reuse of a consumed token.
func (s *RefreshService) revokeFamily(ctx context.Context, record domain.RefreshTokenRecord) error {
	revoked, err := s.RefreshTokens.RevokeFamily(ctx, record.FamilyID)
	if err != nil {
		return storeErr("refresh revoke family", err)
	}

	for _, r := range revoked {
		if err := s.Sessions.Unregister(ctx, r.Subject, r.TokenID); err != nil {
			return err
		}
	}

	return &ReuseDetectedError{
		Subject:  record.Subject,
		FamilyID: record.FamilyID,
		TokenID:  record.TokenID,
		Revoked:  len(revoked),
	}
}

// currentGrants re-reads the subject's roles, since refresh tokens carry none.
func (s *RefreshService) currentGrants(ctx context.Context, subject string) (domain.Grants, error) {
	user, err := s.Users.FindBySubject(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Grants{}, invalidToken(errUnknownSubject)
	}
	if err != nil {
		return domain.Grants{}, storeErr("user lookup", err)
	}
	if user.Disabled {
		return domain.Grants{}, invalidToken(errUnknownSubject)
	}

	grants := s.Resolver.Resolve(subject, user.Roles)
	if grants.Empty() {
		return domain.Grants{}, ErrNoGrants
	}
	return grants, nil
}
