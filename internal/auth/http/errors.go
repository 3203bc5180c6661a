package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// writeServiceError maps service error kinds onto OAuth2-style responses.
// Every refresh token rejection gets the same body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteOAuthError(w, http.StatusUnauthorized, "invalid_grant", "invalid username or password")
	case errors.Is(err, service.ErrSubjectLocked):
		httpx.WriteOAuthError(w, http.StatusLocked, "account_locked", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrNoGrants):
		httpx.WriteOAuthError(w, http.StatusForbidden, "access_denied", "no roles or scopes granted")
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrRefreshTokenNotFound),
		errors.Is(err, service.ErrRefreshTokenReuse):
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", "token is invalid, expired or revoked")
	case errors.Is(err, service.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		httpx.WriteOAuthError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "try again shortly")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "")
	}
}

// parseForm accepts an absent content type or form encoding.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request",
			"content type must be application/x-www-form-urlencoded")
		return false
	}

	if err := r.ParseForm(); err != nil {
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return false
	}
	return true
}
