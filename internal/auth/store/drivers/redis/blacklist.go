package redis

import (
	"context"
	"time"
)

// Blacklist stores one key per revoked token id; Redis expiry removes it.
type Blacklist struct{ s *Store }

func (b *Blacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.s.rdb.Set(ctx, b.s.key("bl", tokenID), "1", ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.s.rdb.Exists(ctx, b.s.key("bl", tokenID)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}
