package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// LoggingAuthenticator logs every login outcome. The wrapped Authenticator
// does no logging of its own.
type LoggingAuthenticator struct {
	Next Authenticator
}

func (a LoggingAuthenticator) Login(ctx context.Context, subject, password string) (domain.IssuedTokenPair, error) {
	start := time.Now()
	l := slogx.FromContext(ctx).With(slog.String("subject", subject))

	pair, err := a.Next.Login(ctx, subject, password)
	elapsed := slog.Duration("elapsed", time.Since(start))

	switch {
	case err == nil:
		l.Info("login succeeded", slog.String("refresh_id", pair.RefreshTokenID), elapsed)
	case errors.Is(err, ErrSubjectLocked):
		l.Warn("login refused, subject locked", elapsed)
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNoGrants):
		l.Info("login rejected", slog.String("reason", err.Error()), elapsed)
	default:
		l.Error("login failed", slog.Any("error", err), elapsed)
	}
	return pair, err
}

// LoggingRefresher audits refresh outcomes, reuse detection in particular.
type LoggingRefresher struct {
	Next Refresher
}

func (r LoggingRefresher) Refresh(ctx context.Context, refreshToken string) (domain.IssuedTokenPair, error) {
	start := time.Now()
	l := slogx.FromContext(ctx)

	pair, err := r.Next.Refresh(ctx, refreshToken)
	elapsed := slog.Duration("elapsed", time.Since(start))

	var reuse *ReuseDetectedError
	switch {
	case err == nil:
		l.Info("refresh succeeded",
			slog.String("subject", pair.Subject),
			slog.String("refresh_id", pair.RefreshTokenID),
			elapsed,
		)
	case errors.As(err, &reuse):
		l.Warn("refresh token reuse detected, family revoked",
			slog.String("subject", reuse.Subject),
			slog.String("family_id", reuse.FamilyID),
			slog.String("token_id", reuse.TokenID),
			slog.Int("revoked", reuse.Revoked),
		)
	case errors.Is(err, ErrInvalidToken):
		l.Info("refresh rejected", slog.Any("reason", RejectionReason(err)), elapsed)
	case errors.Is(err, ErrStoreUnavailable):
		l.Error("refresh failed", slog.Any("error", err), elapsed)
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrRefreshTokenNotFound), errors.Is(err, ErrNoGrants):
		l.Info("refresh rejected", slog.String("reason", err.Error()), elapsed)
	default:
		l.Error("refresh failed", slog.Any("error", err), elapsed)
	}
	return pair, err
}
