package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACSecretSize is the smallest shared secret accepted for HS256.
const MinHMACSecretSize = 32

// HS256Signer implements the Signer interface using HMAC SHA-256. The same
// secret signs and verifies, so it is never published.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	if len(secret) < MinHMACSecretSize {
		return nil, fmt.Errorf("jwtx: HMAC secret must be at least %d bytes", MinHMACSecretSize)
	}

	// Copy so the caller can't mutate our key afterwards
	key := make([]byte, len(secret))
	copy(key, secret)

	return &HS256Signer{kid: kid, secret: key}, nil
}

func (s *HS256Signer) Alg() string    { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) KID() string    { return s.kid }
func (s *HS256Signer) VerifyKey() any { return s.secret }

// Sign produces an HS256 JWT with the kid header set.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) == 0 {
		return errors.New("jwtx: empty HMAC secret")
	}
	return nil
}
