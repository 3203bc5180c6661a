package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

type attemptState struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// LoginAttempts keeps failure counters per subject.
type LoginAttempts struct {
	mu     sync.Mutex
	clock  clockx.Clock
	states map[string]attemptState
}

func NewLoginAttempts(clock clockx.Clock) *LoginAttempts {
	return &LoginAttempts{
		clock:  clock,
		states: make(map[string]attemptState),
	}
}

func (s *LoginAttempts) Get(_ context.Context, subject string) (domain.LoginAttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[subject]
	return domain.LoginAttemptState{
		Subject:      subject,
		FailureCount: st.count,
		LockedUntil:  st.lockedUntil,
	}, nil
}

func (s *LoginAttempts) IncrementFailure(_ context.Context, subject string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.states[subject]

	if st.count == 0 || (window > 0 && !now.Before(st.windowStart.Add(window))) {
		st.count = 0
		st.windowStart = now
	}
	st.count++

	s.states[subject] = st
	return st.count, nil
}

func (s *LoginAttempts) Lock(_ context.Context, subject string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[subject] = attemptState{lockedUntil: until}
	return nil
}

func (s *LoginAttempts) Reset(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, subject)
	return nil
}
