package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// RefreshTokens keeps refresh token records in a map with a family index.
type RefreshTokens struct {
	mu       sync.Mutex
	records  map[string]domain.RefreshTokenRecord
	families map[string]map[string]struct{}

	// revokedFamilies maps a revoked family to the expiry of its last record.
	revokedFamilies map[string]time.Time
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{
		records:         make(map[string]domain.RefreshTokenRecord),
		families:        make(map[string]map[string]struct{}),
		revokedFamilies: make(map[string]time.Time),
	}
}

func (s *RefreshTokens) Save(_ context.Context, r domain.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.TokenID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := s.revokedFamilies[r.FamilyID]; ok {
		return store.ErrFamilyRevoked
	}

	s.records[r.TokenID] = r
	fam, ok := s.families[r.FamilyID]
	if !ok {
		fam = make(map[string]struct{})
		s.families[r.FamilyID] = fam
	}
	fam[r.TokenID] = struct{}{}

	return nil
}

func (s *RefreshTokens) FindByID(_ context.Context, tokenID string) (domain.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[tokenID]
	if !ok {
		return domain.RefreshTokenRecord{}, store.ErrNotFound
	}
	return r, nil
}

func (s *RefreshTokens) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[tokenID]
	if !ok {
		return store.ErrNotFound
	}
	r.Revoked = true
	s.records[tokenID] = r
	return nil
}

func (s *RefreshTokens) RevokeFamily(_ context.Context, familyID string) ([]domain.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.revokedFamilies[familyID]
	var out []domain.RefreshTokenRecord
	for id := range s.families[familyID] {
		r := s.records[id]
		r.Revoked = true
		s.records[id] = r
		out = append(out, r)
		if r.ExpiresAt.After(until) {
			until = r.ExpiresAt
		}
	}
	s.revokedFamilies[familyID] = until
	return out, nil
}

func (s *RefreshTokens) Delete(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(tokenID)
	return nil
}

func (s *RefreshTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.records {
		if r.ExpiresAt.Before(before) {
			s.deleteLocked(id)
			n++
		}
	}
	for fam, until := range s.revokedFamilies {
		if until.Before(before) {
			delete(s.revokedFamilies, fam)
		}
	}
	return n, nil
}

func (s *RefreshTokens) deleteLocked(tokenID string) {
	r, ok := s.records[tokenID]
	if !ok {
		return
	}
	delete(s.records, tokenID)

	fam := s.families[r.FamilyID]
	delete(fam, tokenID)
	if len(fam) == 0 {
		delete(s.families, r.FamilyID)
	}
}
