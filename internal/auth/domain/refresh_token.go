package domain

import "time"

// RefreshTokenRecord is the persisted metadata for one refresh token. Every
// rotation creates a new record in the same family pointing back at its
// predecessor.
type RefreshTokenRecord struct {
	TokenID         string
	FamilyID        string
	Subject         string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Revoked         bool
	PreviousTokenID string // empty for the first token of a family
}

// ExpiredAt reports whether the record is unusable at now.
func (r RefreshTokenRecord) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Remaining is the lifetime left at now, never negative.
func (r RefreshTokenRecord) Remaining(now time.Time) time.Duration {
	return max(r.ExpiresAt.Sub(now), 0)
}
