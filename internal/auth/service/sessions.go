package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/cespare/xxhash/v2"
)

const sessionLockStripes = 64

// SessionManager enforces the per-subject session limit. Registration and
// eviction for one subject are serialized in process by a striped lock; the
// store's Register is atomic per subject across replicas.
type SessionManager struct {
	sessions  store.Sessions
	refresh   store.RefreshTokens
	blacklist *TokenBlacklist
	max       int

	locks [sessionLockStripes]sync.Mutex
}

// NewSessionManager builds a manager allowing max sessions per subject,
// 0 meaning unlimited.
func NewSessionManager(
	sessions store.Sessions,
	refresh store.RefreshTokens,
	blacklist *TokenBlacklist,
	max int,
) *SessionManager {
	return &SessionManager{
		sessions:  sessions,
		refresh:   refresh,
		blacklist: blacklist,
		max:       max,
	}
}

func (m *SessionManager) lock(subject string) func() {
	mu := &m.locks[xxhash.Sum64String(subject)%sessionLockStripes]
	mu.Lock()
	return mu.Unlock
}

// Register records a new session and evicts the oldest ones over the limit.
// It returns the evicted sessions.
func (m *SessionManager) Register(ctx context.Context, subject, tokenID string, expiresAt time.Time) ([]domain.SessionEntry, error) {
	defer m.lock(subject)()
	return m.register(ctx, domain.SessionEntry{Subject: subject, TokenID: tokenID, ExpiresAt: expiresAt})
}

// Rotate swaps a session's refresh token id. The new id counts as the newest
// session.
func (m *SessionManager) Rotate(ctx context.Context, subject, oldID, newID string, expiresAt time.Time) ([]domain.SessionEntry, error) {
	defer m.lock(subject)()

	if err := m.sessions.Remove(ctx, subject, oldID); err != nil {
		return nil, storeErr("session remove", err)
	}
	return m.register(ctx, domain.SessionEntry{Subject: subject, TokenID: newID, ExpiresAt: expiresAt})
}

func (m *SessionManager) register(ctx context.Context, e domain.SessionEntry) ([]domain.SessionEntry, error) {
	evicted, err := m.sessions.Register(ctx, e, m.max)
	if err != nil {
		return nil, storeErr("session register", err)
	}

	for _, old := range evicted {
		if err := m.revoke(ctx, old); err != nil {
			return evicted, err
		}
	}
	return evicted, nil
}

// Unregister forgets a session without revoking anything.
func (m *SessionManager) Unregister(ctx context.Context, subject, tokenID string) error {
	defer m.lock(subject)()
	return storeErr("session remove", m.sessions.Remove(ctx, subject, tokenID))
}

// List returns the subject's active sessions, oldest first.
func (m *SessionManager) List(ctx context.Context, subject string) ([]domain.SessionEntry, error) {
	entries, err := m.sessions.List(ctx, subject)
	if err != nil {
		return nil, storeErr("session list", err)
	}
	return entries, nil
}

// RevokeAll ends every session of the subject the same way eviction does.
func (m *SessionManager) RevokeAll(ctx context.Context, subject string) ([]domain.SessionEntry, error) {
	defer m.lock(subject)()

	entries, err := m.sessions.List(ctx, subject)
	if err != nil {
		return nil, storeErr("session list", err)
	}

	for _, e := range entries {
		if err := m.sessions.Remove(ctx, subject, e.TokenID); err != nil {
			return nil, storeErr("session remove", err)
		}
		if err := m.revoke(ctx, e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// revoke blacklists an ended session's refresh token until its own expiry and
// drops its record.
func (m *SessionManager) revoke(ctx context.Context, e domain.SessionEntry) error {
	if err := m.blacklist.Revoke(ctx, e.TokenID, e.ExpiresAt); err != nil {
		return err
	}
	if err := m.refresh.Delete(ctx, e.TokenID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("refresh delete", err)
	}
	return nil
}
