package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/jellydator/ttlcache/v3"
)

// ConsumptionGuard is a first-writer-wins marker set.
type ConsumptionGuard struct {
	mu    sync.Mutex
	clock clockx.Clock
	cache *ttlcache.Cache[string, time.Time]
}

func NewConsumptionGuard(clock clockx.Clock) *ConsumptionGuard {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)
	go cache.Start()

	return &ConsumptionGuard{clock: clock, cache: cache}
}

func (g *ConsumptionGuard) Consume(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if item := g.cache.Get(tokenID); item != nil && now.Before(item.Value()) {
		return false, nil
	}

	g.cache.Set(tokenID, now.Add(ttl), ttl)
	return true, nil
}

func (g *ConsumptionGuard) Release(_ context.Context, tokenID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cache.Delete(tokenID)
	return nil
}

// Close stops the cache's expiry loop.
func (g *ConsumptionGuard) Close() error {
	g.cache.Stop()
	return nil
}
