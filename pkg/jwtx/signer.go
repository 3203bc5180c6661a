package jwtx

import (
	"fmt"
	"strings"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmHS256 = "HS256"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerifyKey is the key a verifier needs for this signer's tokens, the
	// public key for RSA and the shared secret for HMAC.
	VerifyKey() any
	Validate() error
}

// Publisher is implemented by signers whose verification key can be
// published in a JWKS.
type Publisher interface {
	PublicJWK() JWK
}

// NewSignerRS256 creates an RS256 signer from PEM bytes.
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	return newRS256Signer(kid, pemKey)
}

// NewSignerHS256 creates an HS256 signer from a shared secret.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	return newHS256Signer(kid, secret)
}

// ParseAlgorithm maps a configured algorithm family ("RSA", "HMAC") or a JWS
// name ("RS256", "HS256") to the JWS name.
func ParseAlgorithm(s string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "RSA", AlgorithmRS256:
		return AlgorithmRS256, nil
	case "HMAC", AlgorithmHS256:
		return AlgorithmHS256, nil
	default:
		return "", fmt.Errorf("jwtx: unsupported algorithm %q (supported: RSA, HMAC)", s)
	}
}
