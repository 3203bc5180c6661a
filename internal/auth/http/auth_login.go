package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// LoginHandler serves POST /v1/auth/login with form fields username and
// password.
type LoginHandler struct {
	Authenticator service.Authenticator
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	pair, err := h.Authenticator.Login(r.Context(), username, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

func tokenResponse(p domain.IssuedTokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		TokenType:        "Bearer",
		ExpiresIn:        seconds(p.AccessExpiry.Sub(p.IssuedAt)),
		RefreshToken:     p.RefreshToken,
		RefreshExpiresIn: seconds(p.RefreshExpiry.Sub(p.IssuedAt)),
		Scope:            strings.Join(p.Scopes, " "),
		Roles:            p.Roles,
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
