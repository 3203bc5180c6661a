package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// ErrUnavailable is returned by a TokenVerifier that could not reach its
// backing store. The caller gets a 503 instead of a 401.
var ErrUnavailable = errors.New("httpx: verifier unavailable")

// TokenVerifier turns a bearer token into a Principal or rejects it.
type TokenVerifier interface {
	VerifyBearer(ctx context.Context, token string) (Principal, error)
}

// AuthnMiddleware requires a valid bearer token and stores the caller's
// Principal in the request context.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := v.VerifyBearer(ctx, raw)
			if errors.Is(err, ErrUnavailable) {
				log.Error("bearer verification unavailable", "err", err)
				w.Header().Set("Retry-After", "1")
				WriteOAuthError(w, http.StatusServiceUnavailable, "temporarily_unavailable",
					"authentication is temporarily unavailable")
				return
			}
			if err != nil {
				log.Info("bearer rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(authz[7:])
	return raw, raw != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
