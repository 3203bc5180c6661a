package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// RS256Signer signs with an RSA private key. Its public half is published in
// the JWKS so resource servers can verify offline.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
}

func newRS256Signer(kid string, pemKey []byte) (*RS256Signer, error) {
	key, err := parseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &RS256Signer{kid: kid, key: key}, nil
}

// parseRSAPrivateKey accepts PKCS1 ("RSA PRIVATE KEY") and PKCS8
// ("PRIVATE KEY") PEM blocks.
func parseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		return key, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: PKCS8 key is %T, not RSA", parsed)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
}

func (s *RS256Signer) Alg() string    { return AlgorithmRS256 }
func (s *RS256Signer) KID() string    { return s.kid }
func (s *RS256Signer) VerifyKey() any { return &s.key.PublicKey }

// Sign produces an RS256 JWT with the kid header set.
func (s *RS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *RS256Signer) PublicJWK() JWK {
	return rsaJWK(s.kid, AlgorithmRS256, &s.key.PublicKey)
}

func (s *RS256Signer) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil RSA key")
	}
	if bits := s.key.N.BitLen(); bits < cryptox.MinRSABits {
		return fmt.Errorf("jwtx: RSA key too small (%d bits)", bits)
	}
	return nil
}
