package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidToken         = errors.New("invalid_token")
	ErrTokenExpired         = errors.New("token_expired")
	ErrRefreshTokenNotFound = errors.New("refresh_token_not_found")
	ErrRefreshTokenReuse    = errors.New("refresh_token_reuse_detected")
	ErrSubjectLocked        = errors.New("subject_locked")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrStoreUnavailable     = errors.New("store_unavailable")
	ErrNoGrants             = errors.New("no_grants")
)

// Internal rejection reasons. They only ever travel inside an
// InvalidTokenError.
var (
	errWrongTokenUse   = errors.New("unexpected token_use")
	errWrongAudience   = errors.New("refresh audience missing")
	errConsumed        = errors.New("refresh token already consumed")
	errRevoked         = errors.New("token revoked")
	errSubjectMismatch = errors.New("token belongs to another subject")
	errUnknownSubject  = errors.New("subject unknown or disabled")
)

// InvalidTokenError rejects a token. It matches ErrInvalidToken and nothing
// else, so callers see accept or reject and never the reason. Use
// RejectionReason to get it for logs.
type InvalidTokenError struct {
	Reason error
}

func (e *InvalidTokenError) Error() string { return ErrInvalidToken.Error() }

func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

func invalidToken(reason error) error {
	return &InvalidTokenError{Reason: reason}
}

// RejectionReason returns the internal reason behind an InvalidTokenError,
// or nil.
func RejectionReason(err error) error {
	var ite *InvalidTokenError
	if errors.As(err, &ite) {
		return ite.Reason
	}
	return nil
}

// ReuseDetectedError reports a consumed refresh token presented again. By
// the time it is returned the whole family has been revoked.
type ReuseDetectedError struct {
	Subject  string
	FamilyID string
	TokenID  string
	Revoked  int
}

func (e *ReuseDetectedError) Error() string {
	return fmt.Sprintf("%s: family %s (%d tokens revoked)", ErrRefreshTokenReuse, e.FamilyID, e.Revoked)
}

func (e *ReuseDetectedError) Is(target error) bool { return target == ErrRefreshTokenReuse }

// storeErr converts an unexpected store error (usually one wrapping
// store.ErrUnavailable) into ErrStoreUnavailable, keeping the original in the
// chain.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
