package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// KeyRotationHandler handles signing key operations. Both endpoints require
// the admin:keys scope.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /v1/keys/rotate
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		httpx.WriteOAuthError(w, http.StatusNotImplemented, "server_error", "key rotation is disabled")
		return
	}

	resp, err := h.KeyRotationService.Rotate()
	if err != nil {
		slogx.FromContext(r.Context()).Error("key rotation failed", "err", err)
		httpx.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "key rotation failed")
		return
	}

	p, _ := httpx.PrincipalFrom(r.Context())
	slogx.FromContext(r.Context()).Info("signing key rotated",
		"by", p.Subject,
		"kid", resp.NewKey.Kid,
		"superseded", resp.Superseded.Kid,
	)

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleListKeys handles GET /v1/keys
func (h *KeyRotationHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		httpx.WriteOAuthError(w, http.StatusNotImplemented, "server_error", "key rotation is disabled")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, KeysResponse{Keys: h.KeyRotationService.Keys()})
}
