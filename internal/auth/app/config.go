package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// DefaultScopePolicy is used when AUTH_SCOPE_POLICY is unset.
const DefaultScopePolicy = "ADMIN=profile:read,admin:keys;USER=profile:read"

type Config struct {
	Issuer          string        // issuer claim (default: tollgate)
	AccessAudience  string        // audience of access tokens (default: api)
	RefreshAudience string        // audience of refresh tokens (default: auth)
	AccessTTL       time.Duration // default: 15m
	RefreshTTL      time.Duration // default: 720h
	ClockSkew       time.Duration // tolerated drift on exp/nbf/iat (default: 0)

	Algorithm  string // RSA or HMAC (default: RSA)
	RSABits    int    // RSA key size (default: 4096)
	HMACSecret string // base64; generated when empty (single replica only)

	RotationEnabled       bool          // rotate refresh tokens on use (default: true)
	MaxSessions           int           // per subject, 0 = unlimited
	LoginFailureThreshold int           // failures before lock, 0 = never lock (default: 5)
	LoginLockDuration     time.Duration // default: 15m
	LoginFailureWindow    time.Duration // 0 = failures never age out (default: 15m)
	ScopePolicy           string        // ROLE=scope,scope;ROLE=scope
	KeyGracePeriod        time.Duration // default: RefreshTTL
	KeyRotationEnabled    bool          // expose /v1/keys (default: true)
	BootstrapSubject      string        // seed user when the directory is empty
	BootstrapPassword     string        // generated when empty
	BootstrapRoles        []string      // default: ADMIN
	TokenStore            string        // memory, sqlite or redis
	CacheStore            string        // memory or redis
	UserStore             string        // memory or sqlite
	DatabaseFile          string        // SQLite file (default: tollgate.db)
	RedisAddr             string        // default: localhost:6379
	RedisPassword         string        //
	RedisDB               int           //
	RedisPrefix           string        // key prefix (default: tollgate)
	PepperFile            string        // password pepper, created on first start (default: pepper)
	Env                   string        // dev, staging, prod (default: dev)
	LogLevel              string        // debug, info, warn, error (default: info)
	LogFormat             string        // json or text (default: json)
	Port                  int           // default: 8080
	ShutdownGracePeriod   time.Duration // default: 10s
	HousekeepingInterval  time.Duration // default: 1h
	LoginRateLimit        string        // requests/window[/burst]
	RefreshRateLimit      string        // requests/window[/burst]
}

func LoadConfig() Config {
	refreshTTL := getEnvDurationOrDefault("AUTH_REFRESH_TTL", 30*24*time.Hour)

	return Config{
		Issuer:          getEnvOrDefault("AUTH_ISSUER", "tollgate"),
		AccessAudience:  getEnvOrDefault("AUTH_ACCESS_AUDIENCE", "api"),
		RefreshAudience: getEnvOrDefault("AUTH_REFRESH_AUDIENCE", "auth"),
		AccessTTL:       getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      refreshTTL,
		ClockSkew:       time.Duration(getEnvIntOrDefault("AUTH_CLOCK_SKEW_SECONDS", 0)) * time.Second,

		Algorithm:  getEnvOrDefault("AUTH_ALGORITHM", "RSA"),
		RSABits:    getEnvIntOrDefault("AUTH_RSA_BITS", 4096),
		HMACSecret: os.Getenv("AUTH_HMAC_SECRET"),

		RotationEnabled:       getEnvBoolOrDefault("AUTH_ROTATION_ENABLED", true),
		MaxSessions:           getEnvIntOrDefault("AUTH_MAX_SESSIONS", 0),
		LoginFailureThreshold: getEnvIntOrDefault("AUTH_LOGIN_FAILURE_THRESHOLD", 5),
		LoginLockDuration:     getEnvDurationOrDefault("AUTH_LOGIN_LOCK_DURATION", 15*time.Minute),
		LoginFailureWindow:    getEnvDurationOrDefault("AUTH_LOGIN_FAILURE_WINDOW", 15*time.Minute),
		ScopePolicy:           getEnvOrDefault("AUTH_SCOPE_POLICY", DefaultScopePolicy),
		KeyGracePeriod:        getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", refreshTTL),
		KeyRotationEnabled:    getEnvBoolOrDefault("AUTH_KEY_ROTATION_ENABLED", true),

		BootstrapSubject:  os.Getenv("AUTH_BOOTSTRAP_SUBJECT"),
		BootstrapPassword: os.Getenv("AUTH_BOOTSTRAP_PASSWORD"),
		BootstrapRoles:    getEnvListOrDefault("AUTH_BOOTSTRAP_ROLES", []string{"ADMIN"}),

		TokenStore:    getEnvOrDefault("AUTH_TOKEN_STORE", StoreMemory),
		CacheStore:    getEnvOrDefault("AUTH_CACHE_STORE", StoreMemory),
		UserStore:     getEnvOrDefault("AUTH_USER_STORE", StoreMemory),
		DatabaseFile:  getEnvOrDefault("AUTH_DATABASE_FILE", "tollgate.db"),
		RedisAddr:     getEnvOrDefault("AUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("AUTH_REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("AUTH_REDIS_PREFIX", "tollgate"),
		PepperFile:    getEnvOrDefault("PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		LoginRateLimit:       os.Getenv("RATE_LIMIT_LOGIN"),
		RefreshRateLimit:     os.Getenv("RATE_LIMIT_REFRESH"),
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	if c.AccessAudience == "" || c.RefreshAudience == "" {
		errs = append(errs, errors.New("access and refresh audiences must not be empty"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.AccessTTL > c.RefreshTTL {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TTL (%s) exceeds AUTH_REFRESH_TTL (%s)", c.AccessTTL, c.RefreshTTL))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("AUTH_CLOCK_SKEW_SECONDS must not be negative"))
	}
	if _, err := jwtx.ParseAlgorithm(c.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if c.MaxSessions < 0 || c.LoginFailureThreshold < 0 {
		errs = append(errs, errors.New("session and lockout limits must not be negative"))
	}
	if c.LoginFailureThreshold > 0 && c.LoginLockDuration <= 0 {
		errs = append(errs, errors.New("AUTH_LOGIN_LOCK_DURATION must be positive when lockout is enabled"))
	}
	if c.LoginFailureWindow < 0 || c.KeyGracePeriod < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := c.ParseScopePolicy(); err != nil {
		errs = append(errs, err)
	}

	checkStore := func(name, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown store %q (want one of %s)", name, value, strings.Join(allowed, ", ")))
		}
	}
	checkStore("AUTH_TOKEN_STORE", c.TokenStore, StoreMemory, StoreSQLite, StoreRedis)
	checkStore("AUTH_CACHE_STORE", c.CacheStore, StoreMemory, StoreRedis)
	checkStore("AUTH_USER_STORE", c.UserStore, StoreMemory, StoreSQLite)

	for name, raw := range map[string]string{"RATE_LIMIT_LOGIN": c.LoginRateLimit, "RATE_LIMIT_REFRESH": c.RefreshRateLimit} {
		if raw == "" {
			continue
		}
		if _, err := httpx.ParseRateLimit(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// ParseScopePolicy parses "ROLE=scope,scope;ROLE=scope". Whitespace is
// ignored and a role may appear more than once.
func (c Config) ParseScopePolicy() (domain.ScopePolicy, error) {
	policy := domain.ScopePolicy{}
	for entry := range strings.SplitSeq(c.ScopePolicy, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		role, scopes, ok := strings.Cut(entry, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("AUTH_SCOPE_POLICY: bad entry %q, want ROLE=scope,scope", entry)
		}

		policy[role] = append(policy[role], splitList(scopes)...)
	}
	return policy, nil
}

// RateLimits returns the configured limits, falling back to the defaults.
func (c Config) RateLimits() (login, refresh httpx.RateLimitConfig) {
	login, refresh = httpx.LoginLimit, httpx.RefreshLimit
	if l, err := httpx.ParseRateLimit(c.LoginRateLimit); err == nil {
		login = l
	}
	if l, err := httpx.ParseRateLimit(c.RefreshRateLimit); err == nil {
		refresh = l
	}
	return login, refresh
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	if list := splitList(os.Getenv(key)); len(list) > 0 {
		return list
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
