package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

// TokenBlacklist revokes token ids until the instant they would have expired
// anyway.
type TokenBlacklist struct {
	Store store.Blacklist
	Clock clockx.Clock
}

// Revoke is a no-op for tokens that have already expired.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.Clock.Now())
	if ttl <= 0 {
		return nil
	}
	return storeErr("blacklist revoke", b.Store.Revoke(ctx, tokenID, ttl))
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := b.Store.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, storeErr("blacklist lookup", err)
	}
	return revoked, nil
}
