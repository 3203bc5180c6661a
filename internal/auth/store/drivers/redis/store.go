// Package redis implements the TTL-bound store ports on Redis so several
// replicas share one view of revocations, sessions and lockouts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	goredis "github.com/redis/go-redis/v9"
)

// Options configures the client built by Open.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, e.g. "tollgate:".
	Prefix string
}

// Store is the shared client. The port implementations hang off it.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	clock  clockx.Clock
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient, prefix string, clock clockx.Clock) *Store {
	return &Store{rdb: rdb, prefix: prefix, clock: clock}
}

// Open dials Redis and checks the connection.
func Open(ctx context.Context, opts Options, clock clockx.Clock) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	s := New(rdb, opts.Prefix, clock)
	if err := s.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{s: s} }
func (s *Store) Blacklist() *Blacklist         { return &Blacklist{s: s} }
func (s *Store) Guard() *ConsumptionGuard      { return &ConsumptionGuard{s: s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s: s} }
func (s *Store) LoginAttempts() *LoginAttempts { return &LoginAttempts{s: s} }

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// unavailable marks a backend failure as transient.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

func isNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}

func unixMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMilli(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ttlMillis converts d to a positive millisecond count for PEXPIRE/PX.
func ttlMillis(d time.Duration) int64 {
	return max(d.Milliseconds(), 1)
}
