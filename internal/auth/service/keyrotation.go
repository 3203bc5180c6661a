package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// KeyRotationService swaps the signing key at runtime. A superseded key
// keeps verifying for GracePeriod so tokens it signed stay valid until they
// expire; RetireDue then drops it.
//
// Keys live in process memory. With HMAC every replica needs the same
// secret, so runtime rotation only makes sense for RSA or single replicas.
type KeyRotationService struct {
	keys        *jwtx.KeyManager
	clock       clockx.Clock
	gracePeriod time.Duration

	mu    sync.Mutex
	added map[string]time.Time
	due   map[string]time.Time
}

func NewKeyRotationService(keys *jwtx.KeyManager, clock clockx.Clock, gracePeriod time.Duration) *KeyRotationService {
	s := &KeyRotationService{
		keys:        keys,
		clock:       clock,
		gracePeriod: gracePeriod,
		added:       make(map[string]time.Time),
		due:         make(map[string]time.Time),
	}

	now := clock.Now()
	for _, signer := range keys.GetSigners() {
		s.added[signer.KID()] = now
	}
	return s
}

// RotateKeyResponse is the outcome of a rotation.
type RotateKeyResponse struct {
	NewKey     domain.SigningKey `json:"new_key"`
	Superseded domain.SigningKey `json:"superseded"`
}

// Rotate generates a key and makes it current.
func (s *KeyRotationService) Rotate() (RotateKeyResponse, error) {
	signer, err := s.keys.GenerateSigner()
	if err != nil {
		return RotateKeyResponse{}, fmt.Errorf("keyrotation: generate key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.keys.CurrentKeyID()
	if err := s.keys.AddSigner(signer); err != nil {
		return RotateKeyResponse{}, fmt.Errorf("keyrotation: install key: %w", err)
	}

	now := s.clock.Now()
	retireAt := now.Add(s.gracePeriod)
	s.added[signer.KID()] = now
	s.due[previous] = retireAt

	return RotateKeyResponse{
		NewKey: domain.SigningKey{
			Kid:       signer.KID(),
			Algorithm: signer.Alg(),
			Current:   true,
			AddedAt:   now,
		},
		Superseded: domain.SigningKey{
			Kid:       previous,
			Algorithm: signer.Alg(),
			AddedAt:   s.added[previous],
			RetireAt:  &retireAt,
		},
	}, nil
}

// Keys lists every key still verifying, oldest first.
func (s *KeyRotationService) Keys() []domain.SigningKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.keys.CurrentKeyID()
	signers := s.keys.GetSigners()
	out := make([]domain.SigningKey, 0, len(signers))
	for _, signer := range signers {
		k := domain.SigningKey{
			Kid:       signer.KID(),
			Algorithm: signer.Alg(),
			Current:   signer.KID() == current,
			AddedAt:   s.added[signer.KID()],
		}
		if at, ok := s.due[signer.KID()]; ok {
			k.RetireAt = &at
		}
		out = append(out, k)
	}
	return out
}

// RetireDue removes superseded keys whose grace period has passed and
// returns their kids.
func (s *KeyRotationService) RetireDue() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var retired []string
	for kid, at := range s.due {
		if now.Before(at) {
			continue
		}
		if err := s.keys.RetireSignerByKid(kid); err != nil {
			return retired, fmt.Errorf("keyrotation: retire %s: %w", kid, err)
		}
		delete(s.due, kid)
		delete(s.added, kid)
		retired = append(retired, kid)
	}
	return retired, nil
}
