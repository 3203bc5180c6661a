package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Each subject owns three keys sharing a hash tag so they land in one slot:
//
//	sess:{subject}:z    ZSET token id -> registration sequence
//	sess:{subject}:exp  HASH token id -> expiry (unix ms)
//	sess:{subject}:seq  registration counter
//
// The sequence keeps insertion order stable even when two logins share a
// millisecond.

// KEYS: z, exp, seq. ARGV: token, expMs, nowMs, max, keyTTLms.
// Returns evicted entries as a flat list of token, expMs pairs.
var registerSessionScript = goredis.NewScript(`
local z, exp, seq = KEYS[1], KEYS[2], KEYS[3]
local now = tonumber(ARGV[3])
local limit = tonumber(ARGV[4])

for _, id in ipairs(redis.call("ZRANGE", z, 0, -1)) do
	local e = tonumber(redis.call("HGET", exp, id) or "0")
	if e <= now then
		redis.call("ZREM", z, id)
		redis.call("HDEL", exp, id)
	end
end

local n = redis.call("INCR", seq)
redis.call("ZADD", z, n, ARGV[1])
redis.call("HSET", exp, ARGV[1], ARGV[2])

local evicted = {}
if limit > 0 then
	local excess = redis.call("ZCARD", z) - limit
	if excess > 0 then
		for _, id in ipairs(redis.call("ZRANGE", z, 0, excess - 1)) do
			table.insert(evicted, id)
			table.insert(evicted, redis.call("HGET", exp, id) or "0")
			redis.call("ZREM", z, id)
			redis.call("HDEL", exp, id)
		end
	end
end

local ttl = tonumber(ARGV[5])
for _, k in ipairs(KEYS) do
	if redis.call("PTTL", k) < ttl then
		redis.call("PEXPIRE", k, ttl)
	end
end

return evicted
`)

type Sessions struct{ s *Store }

func (ss *Sessions) keys(subject string) []string {
	tag := "{" + subject + "}"
	return []string{
		ss.s.key("sess", tag, "z"),
		ss.s.key("sess", tag, "exp"),
		ss.s.key("sess", tag, "seq"),
	}
}

func (ss *Sessions) Register(ctx context.Context, e domain.SessionEntry, limit int) ([]domain.SessionEntry, error) {
	now := ss.s.clock.Now()
	ttl := ttlMillis(e.ExpiresAt.Sub(now))

	flat, err := registerSessionScript.Run(ctx, ss.s.rdb, ss.keys(e.Subject),
		e.TokenID, e.ExpiresAt.UnixMilli(), now.UnixMilli(), limit, ttl,
	).StringSlice()
	if err != nil && !isNil(err) {
		return nil, unavailable(err)
	}

	var evicted []domain.SessionEntry
	for i := 0; i+1 < len(flat); i += 2 {
		evicted = append(evicted, domain.SessionEntry{
			Subject:   e.Subject,
			TokenID:   flat[i],
			ExpiresAt: parseMilli(flat[i+1]),
		})
	}
	return evicted, nil
}

func (ss *Sessions) Remove(ctx context.Context, subject, tokenID string) error {
	k := ss.keys(subject)
	_, err := ss.s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRem(ctx, k[0], tokenID)
		p.HDel(ctx, k[1], tokenID)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (ss *Sessions) List(ctx context.Context, subject string) ([]domain.SessionEntry, error) {
	k := ss.keys(subject)

	ids, err := ss.s.rdb.ZRange(ctx, k[0], 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	exps, err := ss.s.rdb.HMGet(ctx, k[1], ids...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	now := ss.s.clock.Now()
	out := make([]domain.SessionEntry, 0, len(ids))
	for i, id := range ids {
		raw, _ := exps[i].(string)
		ms, _ := strconv.ParseInt(raw, 10, 64)
		exp := time.UnixMilli(ms).UTC()
		if !exp.After(now) {
			continue
		}
		out = append(out, domain.SessionEntry{Subject: subject, TokenID: id, ExpiresAt: exp})
	}
	return out, nil
}
