package redis

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// Records live in a hash per token and expire with the token. A set per
// family lists its members so a whole lineage can be revoked. A revoked family
// leaves a marker key behind that outlives its members; Save refuses to add
// to a marked family.

// familyMarkerMinTTL bounds the marker's life from below when the family set
// has already expired.
const familyMarkerMinTTL = time.Minute

// saveRecordScript writes the record and joins it to its family in one step,
// so RevokeFamily sees either the marker refusal or the new member. The family
// set's expiry only ever moves out.
var saveRecordScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
if redis.call("EXISTS", KEYS[3]) == 1 then
	return -1
end
local ttl = tonumber(ARGV[7])
redis.call("HSET", KEYS[1],
	"family", ARGV[1], "subject", ARGV[2], "iat", ARGV[3],
	"exp", ARGV[4], "prev", ARGV[5], "revoked", "0")
redis.call("PEXPIRE", KEYS[1], ttl)
redis.call("SADD", KEYS[2], ARGV[6])
if redis.call("PTTL", KEYS[2]) < ttl then
	redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`)

// markFamilyScript sets the revoked marker to live as long as the family set.
var markFamilyScript = goredis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
local floor = tonumber(ARGV[1])
if ttl < floor then
	ttl = floor
end
redis.call("SET", KEYS[2], "1", "PX", ttl)
return 1
`)

var revokeRecordScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return {}
end
redis.call("HSET", KEYS[1], "revoked", "1")
return redis.call("HGETALL", KEYS[1])
`)

type RefreshTokens struct{ s *Store }

func (r *RefreshTokens) recordKey(id string) string { return r.s.key("rt", id) }
func (r *RefreshTokens) familyKey(f string) string  { return r.s.key("rtf", f) }
func (r *RefreshTokens) markerKey(f string) string  { return r.s.key("rtf", f, "revoked") }

func (r *RefreshTokens) Save(ctx context.Context, rec domain.RefreshTokenRecord) error {
	ttl := ttlMillis(rec.ExpiresAt.Sub(r.s.clock.Now()))

	keys := []string{r.recordKey(rec.TokenID), r.familyKey(rec.FamilyID), r.markerKey(rec.FamilyID)}
	created, err := saveRecordScript.Run(ctx, r.s.rdb, keys,
		rec.FamilyID, rec.Subject, unixMilli(rec.IssuedAt), unixMilli(rec.ExpiresAt),
		rec.PreviousTokenID, rec.TokenID, ttl,
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	switch created {
	case 0:
		return store.ErrAlreadyExists
	case -1:
		return store.ErrFamilyRevoked
	}
	return nil
}

func (r *RefreshTokens) FindByID(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error) {
	fields, err := r.s.rdb.HGetAll(ctx, r.recordKey(tokenID)).Result()
	if err != nil {
		return domain.RefreshTokenRecord{}, unavailable(err)
	}
	if len(fields) == 0 {
		return domain.RefreshTokenRecord{}, store.ErrNotFound
	}
	return toRecord(tokenID, fields), nil
}

func (r *RefreshTokens) Revoke(ctx context.Context, tokenID string) error {
	_, found, err := r.revoke(ctx, tokenID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

func (r *RefreshTokens) RevokeFamily(ctx context.Context, familyID string) ([]domain.RefreshTokenRecord, error) {
	keys := []string{r.familyKey(familyID), r.markerKey(familyID)}
	if err := markFamilyScript.Run(ctx, r.s.rdb, keys, familyMarkerMinTTL.Milliseconds()).Err(); err != nil {
		return nil, unavailable(err)
	}

	ids, err := r.s.rdb.SMembers(ctx, r.familyKey(familyID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]domain.RefreshTokenRecord, 0, len(ids))
	for _, id := range ids {
		rec, found, err := r.revoke(ctx, id)
		if err != nil {
			return out, err
		}
		if found {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *RefreshTokens) revoke(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, bool, error) {
	flat, err := revokeRecordScript.Run(ctx, r.s.rdb, []string{r.recordKey(tokenID)}).StringSlice()
	if err != nil && !isNil(err) {
		return domain.RefreshTokenRecord{}, false, unavailable(err)
	}
	if len(flat) == 0 {
		return domain.RefreshTokenRecord{}, false, nil
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return toRecord(tokenID, fields), true, nil
}

func (r *RefreshTokens) Delete(ctx context.Context, tokenID string) error {
	key := r.recordKey(tokenID)

	family, err := r.s.rdb.HGet(ctx, key, "family").Result()
	if isNil(err) {
		return nil
	}
	if err != nil {
		return unavailable(err)
	}

	_, err = r.s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, key)
		p.SRem(ctx, r.familyKey(family), tokenID)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteExpired is a no-op: records carry their own Redis expiry.
func (r *RefreshTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func toRecord(tokenID string, f map[string]string) domain.RefreshTokenRecord {
	return domain.RefreshTokenRecord{
		TokenID:         tokenID,
		FamilyID:        f["family"],
		Subject:         f["subject"],
		IssuedAt:        parseMilli(f["iat"]),
		ExpiresAt:       parseMilli(f["exp"]),
		Revoked:         f["revoked"] == "1",
		PreviousTokenID: f["prev"],
	}
}
