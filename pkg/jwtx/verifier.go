package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrMissingExpiry  = errors.New("jwtx: missing exp")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrIssuedInFuture = errors.New("jwtx: token issued in the future")
	ErrNotYetValid    = errors.New("jwtx: token not yet valid")
	ErrIssuer         = errors.New("jwtx: issuer mismatch")
	ErrAudience       = errors.New("jwtx: audience mismatch")
	ErrTokenUse       = errors.New("jwtx: invalid token_use")
	ErrMissingClaim   = errors.New("jwtx: missing required claim")
	ErrClaimShape     = errors.New("jwtx: grants do not match token_use")
)

// VerifyOptions captures what a token must look like to be accepted.
type VerifyOptions struct {
	// Algorithm the header must declare, e.g. RS256.
	Algorithm string

	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// AccessAudience must be present in access tokens' aud.
	AccessAudience string

	// RefreshAudience must be present in refresh tokens' aud. Falls back to
	// AccessAudience when empty.
	RefreshAudience string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Verifier validates a JWT and gives you back the claims if it's legit.
// Checks run in a fixed order and the first failure is returned:
//
//  1. structure
//  2. alg header and kid
//  3. signature
//  4. exp / iat / nbf
//  5. iss
//  6. aud for the claimed token_use
//  7. token_use
//  8. sub and jti present
//  9. grants vs token_use
type Verifier struct {
	keys *KeySet
	opts VerifyOptions
}

// NewVerifier creates a verifier resolving keys by kid from keys.
func NewVerifier(keys *KeySet, opts VerifyOptions) *Verifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshAudience == "" {
		opts.RefreshAudience = opts.AccessAudience
	}
	return &Verifier{keys: keys, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims. Every error
// wraps exactly one of the package sentinels.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc)
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	if err := claims.ValidateTimes(v.opts.Now(), v.opts.Leeway); err != nil {
		return nil, err
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, err
	}

	audience := v.opts.AccessAudience
	if claims.TokenUse == TokenUseRefresh {
		audience = v.opts.RefreshAudience
	}
	if err := claims.ValidateAudience(audience); err != nil {
		return nil, err
	}

	if err := claims.ValidateTokenUse(); err != nil {
		return nil, err
	}
	if err := claims.ValidateRequired(); err != nil {
		return nil, err
	}
	if err := claims.ValidateShape(); err != nil {
		return nil, err
	}

	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != v.opts.Algorithm {
		return nil, fmt.Errorf("%w: got %v", ErrAlgMismatch, t.Header["alg"])
	}

	// Need the kid to know which key to use
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKID)
	}

	key, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
	}

	// The key registered under this kid has to fit the algorithm too,
	// otherwise an HMAC secret could be confused with a public key.
	switch v.opts.Algorithm {
	case AlgorithmRS256:
		if pub, ok := key.(*rsa.PublicKey); ok {
			return pub, nil
		}
	case AlgorithmHS256:
		if secret, ok := key.([]byte); ok {
			return secret, nil
		}
	}

	return nil, fmt.Errorf("%w: key type for kid %q", ErrAlgMismatch, kid)
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
