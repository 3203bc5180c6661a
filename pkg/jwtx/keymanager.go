package jwtx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// KeyManager owns the signing keys of an instance. Exactly one signer is
// current and signs new tokens. Older signers stay in the KeySet so tokens
// they signed keep verifying until the key is retired.
type KeyManager struct {
	KeySet *KeySet

	algorithm string
	rsaBits   int

	mu      sync.RWMutex
	current Signer
	signers []Signer
}

// KeyManagerOptions configures the KeyManager for a specific use case.
type KeyManagerOptions struct {
	// Algorithm is "RS256" or "HS256". ParseAlgorithm also accepts "RSA" and
	// "HMAC".
	Algorithm string

	// RSABits specifies the RSA key size for RS256. Defaults to 4096, must be
	// at least 2048.
	RSABits int

	// HMACSecret, when set with HS256, is used instead of a generated secret
	// so several replicas can share one key.
	HMACSecret []byte

	// HMACKeyID names the shared HMAC key. Defaults to "hmac-1".
	HMACKeyID string
}

// NewEphemeralKeyManager creates a new KeyManager with one freshly generated
// key. Generated keys only exist in memory, so every token becomes invalid
// when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	alg, err := ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	km := &KeyManager{
		KeySet:    NewKeySet(),
		algorithm: alg,
		rsaBits:   opts.RSABits,
	}

	var signer Signer
	if alg == AlgorithmHS256 && len(opts.HMACSecret) > 0 {
		kid := opts.HMACKeyID
		if kid == "" {
			kid = "hmac-1"
		}
		signer, err = NewSignerHS256(kid, opts.HMACSecret)
	} else {
		signer, err = km.GenerateSigner()
	}
	if err != nil {
		return nil, err
	}

	if err := km.AddSigner(signer); err != nil {
		return nil, err
	}

	return km, nil
}

// GenerateSigner creates a new signer for the manager's algorithm with a
// random kid. It is not installed; pass it to AddSigner for that.
func (km *KeyManager) GenerateSigner() (Signer, error) {
	kid, err := generateRandomKeyID()
	if err != nil {
		return nil, err
	}

	switch km.algorithm {
	case AlgorithmRS256:
		bits := km.rsaBits
		if bits == 0 {
			bits = 4096 // Default to 4096-bit RSA
		}
		pemBytes, err := cryptox.GenerateRSAKey(bits, cryptox.PKCS1)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate RS256 key: %w", err)
		}
		return NewSignerRS256(kid, pemBytes)

	case AlgorithmHS256:
		secret, err := cryptox.GenerateHMACSecret(cryptox.DefaultSecretSize)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate HS256 secret: %w", err)
		}
		return NewSignerHS256(kid, secret)

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", km.algorithm)
	}
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.current != nil && km.KeySet.IsReady()
}

// Signer returns the current signer.
func (km *KeyManager) Signer() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.current
}

// CurrentKeyID returns the kid new tokens are signed with.
func (km *KeyManager) CurrentKeyID() string {
	if s := km.Signer(); s != nil {
		return s.KID()
	}
	return ""
}

// Sign signs claims with the current key.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.Signer()
	if s == nil {
		return "", errors.New("jwtx: no signing key")
	}
	return s.Sign(claims)
}

// AddSigner installs a signer as the current one. The previous current
// signer keeps verifying.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}
	if signer.Alg() != km.algorithm {
		return fmt.Errorf("%w: signer is %s, manager is %s", ErrAlgMismatch, signer.Alg(), km.algorithm)
	}
	if err := signer.Validate(); err != nil {
		return err
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}

	km.signers = append(km.signers, signer)
	km.current = signer

	return nil
}

// RetireSignerByKid removes a non-current key from verification. Tokens it
// signed stop verifying immediately.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.current != nil && km.current.KID() == kid {
		return errors.New("jwtx: cannot retire the current signing key")
	}

	found := false
	kept := make([]Signer, 0, len(km.signers))
	for _, s := range km.signers {
		if s.KID() == kid {
			found = true
			continue
		}
		kept = append(kept, s)
	}

	if !found {
		return fmt.Errorf("jwtx: signer with kid %q not found", kid)
	}

	km.signers = kept
	km.KeySet.Remove(kid)

	return nil
}

// GetSigners returns a copy of every signer still verifying, oldest first.
func (km *KeyManager) GetSigners() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	signers := make([]Signer, len(km.signers))
	copy(signers, km.signers)
	return signers
}

// generateRandomKeyID creates a random key identifier using cryptographic entropy.
// Format: "tollgate-{random-token}" where random-token is a 128-bit secure token.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.RandomString(cryptox.KeyIDSize)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key ID: %w", err)
	}
	return fmt.Sprintf("tollgate-%s", token), nil
}
