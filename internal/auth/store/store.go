package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrFamilyRevoked is returned by Save when the record's family has been
	// revoked. No new record may join a revoked family.
	ErrFamilyRevoked = errors.New("store: family revoked")

	// ErrUnavailable wraps backend failures (connection refused, timeouts,
	// driver errors). It is transient and never means "token invalid".
	ErrUnavailable = errors.New("store: unavailable")
)

// RefreshTokens persists refresh token metadata.
type RefreshTokens interface {
	// Save inserts a new record. ErrAlreadyExists if the token id is taken,
	// ErrFamilyRevoked if RevokeFamily already ran for its family.
	Save(ctx context.Context, r domain.RefreshTokenRecord) error

	// FindByID returns ErrNotFound when the record is absent.
	FindByID(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error)

	// Revoke sets the revoked flag. ErrNotFound when absent.
	Revoke(ctx context.Context, tokenID string) error

	// RevokeFamily revokes every record in the family and returns them. The
	// family stays marked revoked at least until its records expire, so a
	// concurrent Save into it fails.
	RevokeFamily(ctx context.Context, familyID string) ([]domain.RefreshTokenRecord, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, tokenID string) error

	// DeleteExpired removes records that expired before the cutoff and
	// returns how many went.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Blacklist remembers revoked token ids until their TTL runs out.
type Blacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Sessions is the per-subject registry of active refresh tokens.
type Sessions interface {
	// Register appends e to its subject's sessions, dropping entries that
	// have already expired. When max > 0 and the subject then holds more than
	// max sessions, the oldest are removed and returned, oldest first. The
	// whole operation is atomic for the subject.
	Register(ctx context.Context, e domain.SessionEntry, max int) ([]domain.SessionEntry, error)

	// Remove drops one session. Removing a missing session is not an error.
	Remove(ctx context.Context, subject, tokenID string) error

	// List returns the subject's unexpired sessions, oldest first.
	List(ctx context.Context, subject string) ([]domain.SessionEntry, error)
}

// ConsumptionGuard is a use-once marker for refresh token ids.
type ConsumptionGuard interface {
	// Consume returns true only for the first caller for tokenID within ttl.
	Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)

	// Release drops the marker so the id can be consumed again. Releasing a
	// missing marker is not an error.
	Release(ctx context.Context, tokenID string) error
}

// LoginAttempts stores per-subject login failure counters.
type LoginAttempts interface {
	// Get returns the current state, zero valued for unknown subjects.
	Get(ctx context.Context, subject string) (domain.LoginAttemptState, error)

	// IncrementFailure atomically bumps the failure count and returns the new
	// value. Counts older than window start over.
	IncrementFailure(ctx context.Context, subject string, window time.Duration) (int, error)

	// Lock marks the subject locked until the given instant and clears the
	// failure count.
	Lock(ctx context.Context, subject string, until time.Time) error

	// Reset clears failures and any lock.
	Reset(ctx context.Context, subject string) error
}

// Users is the user directory.
type Users interface {
	FindBySubject(ctx context.Context, subject string) (domain.User, error)

	// Create inserts a user. ErrAlreadyExists if the subject is taken.
	Create(ctx context.Context, u domain.User) error

	Count(ctx context.Context) (int, error)
}

// Pinger is implemented by drivers backed by a remote or file resource.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ports groups one implementation per port, chosen at startup.
type Ports struct {
	RefreshTokens RefreshTokens
	Blacklist     Blacklist
	Sessions      Sessions
	Guard         ConsumptionGuard
	LoginAttempts LoginAttempts
	Users         Users

	// Pingers are checked by the readiness endpoint.
	Pingers []Pinger

	// Closers are released on shutdown.
	Closers []func() error
}

// Close releases every backend.
func (p *Ports) Close() error {
	var errs []error
	for _, c := range p.Closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Ping checks every backend.
func (p *Ports) Ping(ctx context.Context) error {
	for _, pg := range p.Pingers {
		if err := pg.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
