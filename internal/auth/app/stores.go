package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

// OpenStores picks one driver per port group. The token group holds refresh
// token records, the cache group holds the blacklist, consumption guard,
// sessions and login attempts, and the user group holds the directory.
// SQLite and Redis are opened at most once each.
//
// Login attempts follow the cache group, except that a memory cache next to
// a SQLite directory keeps them in SQLite so lockouts survive restarts.
func OpenStores(ctx context.Context, cfg Config, clock clockx.Clock, logger *slog.Logger) (*store.Ports, error) {
	ports := &store.Ports{}

	var (
		db  *sqlite.Store
		rdb *redis.Store
	)
	openSQLite := func() (*sqlite.Store, error) {
		if db != nil {
			return db, nil
		}
		s, err := sqlite.NewStore(sqliteDSN(cfg.DatabaseFile), clock)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := s.ApplyMigrations(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		logger.Info("database migrations applied successfully", "file", cfg.DatabaseFile)

		db = s
		ports.Pingers = append(ports.Pingers, s)
		ports.Closers = append(ports.Closers, s.Close)
		return s, nil
	}
	openRedis := func() (*redis.Store, error) {
		if rdb != nil {
			return rdb, nil
		}
		s, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, clock)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)

		rdb = s
		ports.Pingers = append(ports.Pingers, s)
		ports.Closers = append(ports.Closers, s.Close)
		return s, nil
	}

	fail := func(err error) (*store.Ports, error) {
		_ = ports.Close()
		return nil, err
	}

	switch cfg.TokenStore {
	case StoreSQLite:
		s, err := openSQLite()
		if err != nil {
			return fail(err)
		}
		ports.RefreshTokens = s.RefreshTokens()
	case StoreRedis:
		s, err := openRedis()
		if err != nil {
			return fail(err)
		}
		ports.RefreshTokens = s.RefreshTokens()
	default:
		ports.RefreshTokens = memory.NewRefreshTokens()
	}

	switch cfg.UserStore {
	case StoreSQLite:
		s, err := openSQLite()
		if err != nil {
			return fail(err)
		}
		ports.Users = s.Users()
	default:
		ports.Users = memory.NewUsers()
	}

	switch cfg.CacheStore {
	case StoreRedis:
		s, err := openRedis()
		if err != nil {
			return fail(err)
		}
		ports.Blacklist = s.Blacklist()
		ports.Guard = s.Guard()
		ports.Sessions = s.Sessions()
		ports.LoginAttempts = s.LoginAttempts()
	default:
		blacklist := memory.NewBlacklist(clock)
		guard := memory.NewConsumptionGuard(clock)
		ports.Closers = append(ports.Closers, blacklist.Close, guard.Close)

		ports.Blacklist = blacklist
		ports.Guard = guard
		ports.Sessions = memory.NewSessions(clock)
		ports.LoginAttempts = memory.NewLoginAttempts(clock)
		if db != nil && cfg.UserStore == StoreSQLite {
			ports.LoginAttempts = db.LoginAttempts()
		}
	}

	logger.Info("stores selected",
		"tokens", cfg.TokenStore,
		"cache", cfg.CacheStore,
		"users", cfg.UserStore,
	)
	return ports, nil
}

func sqliteDSN(file string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", file)
}
