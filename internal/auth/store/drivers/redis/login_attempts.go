package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	goredis "github.com/redis/go-redis/v9"
)

// The failure counter starts its window on the first failure.
var incrFailureScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local window = tonumber(ARGV[1])
if n == 1 and window > 0 then
	redis.call("PEXPIRE", KEYS[1], window)
end
return n
`)

type LoginAttempts struct{ s *Store }

func (l *LoginAttempts) failKey(subject string) string {
	return l.s.key("la", "{"+subject+"}", "fail")
}

func (l *LoginAttempts) lockKey(subject string) string {
	return l.s.key("la", "{"+subject+"}", "lock")
}

func (l *LoginAttempts) Get(ctx context.Context, subject string) (domain.LoginAttemptState, error) {
	vals, err := l.s.rdb.MGet(ctx, l.failKey(subject), l.lockKey(subject)).Result()
	if err != nil {
		return domain.LoginAttemptState{}, unavailable(err)
	}

	st := domain.LoginAttemptState{Subject: subject}
	if raw, ok := vals[0].(string); ok {
		st.FailureCount, _ = strconv.Atoi(raw)
	}
	if raw, ok := vals[1].(string); ok {
		st.LockedUntil = parseMilli(raw)
	}
	return st, nil
}

func (l *LoginAttempts) IncrementFailure(ctx context.Context, subject string, window time.Duration) (int, error) {
	var windowMs int64
	if window > 0 {
		windowMs = ttlMillis(window)
	}

	n, err := incrFailureScript.Run(ctx, l.s.rdb, []string{l.failKey(subject)}, windowMs).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (l *LoginAttempts) Lock(ctx context.Context, subject string, until time.Time) error {
	ttl := until.Sub(l.s.clock.Now())

	_, err := l.s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, l.failKey(subject))
		if ttl > 0 {
			p.Set(ctx, l.lockKey(subject), unixMilli(until), ttl)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (l *LoginAttempts) Reset(ctx context.Context, subject string) error {
	if err := l.s.rdb.Del(ctx, l.failKey(subject), l.lockKey(subject)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
