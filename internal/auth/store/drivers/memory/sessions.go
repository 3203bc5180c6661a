package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

// Sessions keeps each subject's sessions in a slice, oldest first.
type Sessions struct {
	mu     sync.Mutex
	clock  clockx.Clock
	bySubj map[string][]domain.SessionEntry
}

func NewSessions(clock clockx.Clock) *Sessions {
	return &Sessions{
		clock:  clock,
		bySubj: make(map[string][]domain.SessionEntry),
	}
}

func (s *Sessions) Register(_ context.Context, e domain.SessionEntry, max int) ([]domain.SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.pruneLocked(e.Subject)
	active = slices.DeleteFunc(active, func(x domain.SessionEntry) bool { return x.TokenID == e.TokenID })
	active = append(active, e)

	var evicted []domain.SessionEntry
	if max > 0 && len(active) > max {
		excess := len(active) - max
		evicted = slices.Clone(active[:excess])
		active = slices.Clone(active[excess:])
	}

	s.bySubj[e.Subject] = active
	return evicted, nil
}

func (s *Sessions) Remove(_ context.Context, subject, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	left := slices.DeleteFunc(s.bySubj[subject], func(x domain.SessionEntry) bool { return x.TokenID == tokenID })
	if len(left) == 0 {
		delete(s.bySubj, subject)
		return nil
	}
	s.bySubj[subject] = left
	return nil
}

func (s *Sessions) List(_ context.Context, subject string) ([]domain.SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pruneLocked(subject)), nil
}

// pruneLocked drops expired sessions of subject and returns what is left.
func (s *Sessions) pruneLocked(subject string) []domain.SessionEntry {
	now := s.clock.Now()
	active := slices.DeleteFunc(s.bySubj[subject], func(x domain.SessionEntry) bool {
		return !x.ExpiresAt.After(now)
	})
	if len(active) == 0 {
		delete(s.bySubj, subject)
		return nil
	}
	s.bySubj[subject] = active
	return active
}
