package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured algorithm.
//
// RSA keys are generated on startup and live only in memory; resource servers
// pick up the new public key from the JWKS endpoint. HMAC deployments should
// set AUTH_HMAC_SECRET so every replica signs and verifies with the same key.
// Without it a random secret is generated and only this process can verify
// its tokens.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		RSABits:   cfg.RSABits,
	}

	if cfg.HMACSecret != "" {
		secret, err := cryptox.DecodeSecret(cfg.HMACSecret)
		if err != nil {
			return nil, fmt.Errorf("AUTH_HMAC_SECRET: %w", err)
		}
		opts.HMACSecret = secret
	}

	logger.Info("initializing signing keys", "algorithm", cfg.Algorithm)

	keyManager, err := jwtx.NewEphemeralKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	logger.Info("signing key ready",
		"algorithm", keyManager.Algorithm(),
		"kid", keyManager.CurrentKeyID(),
		"issuer", cfg.Issuer,
	)

	if keyManager.Algorithm() == jwtx.AlgorithmHS256 && len(opts.HMACSecret) == 0 {
		logger.Warn("generated HMAC secret, tokens will not verify on other replicas or after restart")
	}

	return keyManager, nil
}
