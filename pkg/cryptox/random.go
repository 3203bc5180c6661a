package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// Sizes in bytes before encoding.
const (
	// KeyIDSize is the entropy behind generated signing key ids.
	KeyIDSize = 16

	// MinSecretSize is the smallest HMAC secret accepted for HS256.
	MinSecretSize = 32

	// DefaultSecretSize is used for secrets generated at startup.
	DefaultSecretSize = 64
)

// RandomBytes reads n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cryptox: random size must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptox: read random: %w", err)
	}
	return buf, nil
}

// RandomString returns n random bytes, base64url encoded without padding.
func RandomString(n int) (string, error) {
	buf, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateHMACSecret returns size random bytes for use as an HMAC key.
func GenerateHMACSecret(size int) ([]byte, error) {
	if size < MinSecretSize {
		return nil, fmt.Errorf("cryptox: HMAC secret must be at least %d bytes", MinSecretSize)
	}
	return RandomBytes(size)
}

// DecodeSecret accepts a base64 (std or url, padded or not) encoded secret.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("cryptox: secret is not valid base64")
}
