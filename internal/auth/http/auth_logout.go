package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// LogoutHandler ends the caller's sessions. Both routes sit behind
// AuthnMiddleware.
type LogoutHandler struct {
	LogoutService *service.LogoutService
}

// HandleLogout serves POST /v1/auth/logout. The refresh_token form field is
// optional; without it only the access token is revoked.
func (h *LogoutHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	p, _ := httpx.PrincipalFrom(r.Context())
	if err := h.LogoutService.Logout(r.Context(), accessClaims(p), r.PostForm.Get("refresh_token")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll serves POST /v1/auth/logout-all.
func (h *LogoutHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFrom(r.Context())

	n, err := h.LogoutService.LogoutAll(r.Context(), accessClaims(p))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("all sessions ended", "subject", p.Subject, "sessions", n)

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func accessClaims(p httpx.Principal) domain.TokenClaims {
	return domain.TokenClaims{
		Subject:   p.Subject,
		TokenID:   p.TokenID,
		ExpiresAt: p.ExpiresAt,
		Roles:     p.Roles,
		Scopes:    p.Scopes,
		Use:       domain.TokenUseAccess,
	}
}
