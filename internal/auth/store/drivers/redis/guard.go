package redis

import (
	"context"
	"time"
)

// ConsumptionGuard uses SET NX PX: the first writer creates the marker.
type ConsumptionGuard struct{ s *Store }

func (g *ConsumptionGuard) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := g.s.rdb.SetNX(ctx, g.s.key("guard", tokenID), "1", ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (g *ConsumptionGuard) Release(ctx context.Context, tokenID string) error {
	if err := g.s.rdb.Del(ctx, g.s.key("guard", tokenID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
