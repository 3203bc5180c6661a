package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// SessionsHandler serves GET /v1/sessions, the caller's active sessions
// oldest first.
type SessionsHandler struct {
	SessionManager *service.SessionManager
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFrom(r.Context())

	entries, err := h.SessionManager.List(r.Context(), p.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.SessionEntry{}
	}

	httpx.WriteJSON(w, http.StatusOK, SessionsResponse{Subject: p.Subject, Sessions: entries})
}
