package memory

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/jellydator/ttlcache/v3"
)

// Blacklist stores revoked token ids in a ttlcache. The cache evicts on the
// wall clock; lookups also compare the stored deadline against the injected
// clock so frozen-time tests see entries expire.
type Blacklist struct {
	clock clockx.Clock
	cache *ttlcache.Cache[string, time.Time]
}

func NewBlacklist(clock clockx.Clock) *Blacklist {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)
	go cache.Start()

	return &Blacklist{clock: clock, cache: cache}
}

func (b *Blacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.cache.Set(tokenID, b.clock.Now().Add(ttl), ttl)
	return nil
}

func (b *Blacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	item := b.cache.Get(tokenID)
	if item == nil {
		return false, nil
	}
	return b.clock.Now().Before(item.Value()), nil
}

// Close stops the cache's expiry loop.
func (b *Blacklist) Close() error {
	b.cache.Stop()
	return nil
}
