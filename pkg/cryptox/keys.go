package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// MinRSABits is the smallest RSA modulus accepted for RS256 keys.
const MinRSABits = 2048

// KeyFormat selects the PEM encoding of a generated private key.
type KeyFormat int

const (
	PKCS1 KeyFormat = iota // "RSA PRIVATE KEY"
	PKCS8                  // "PRIVATE KEY"
)

// GenerateRSAKey returns a fresh RSA private key as PEM in the given format.
func GenerateRSAKey(bits int, format KeyFormat) ([]byte, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate RSA key: %w", err)
	}

	var block *pem.Block
	switch format {
	case PKCS1:
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	case PKCS8:
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("cryptox: marshal PKCS8 key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	default:
		return nil, fmt.Errorf("cryptox: unknown key format %d", format)
	}

	return pem.EncodeToMemory(block), nil
}
