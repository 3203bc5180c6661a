package http

import (
	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
)

// ScopeAdminKeys guards the signing key endpoints.
const ScopeAdminKeys = "admin:keys"

// TokenResponse is the body of a successful login or refresh.
type TokenResponse struct {
	AccessToken      string   `json:"access_token"`
	TokenType        string   `json:"token_type"`
	ExpiresIn        int      `json:"expires_in"`
	RefreshToken     string   `json:"refresh_token"`
	RefreshExpiresIn int      `json:"refresh_expires_in"`
	Scope            string   `json:"scope,omitempty"`
	Roles            []string `json:"roles,omitempty"`
}

type SessionsResponse struct {
	Subject  string                `json:"subject"`
	Sessions []domain.SessionEntry `json:"sessions"`
}

type KeysResponse struct {
	Keys []domain.SigningKey `json:"keys"`
}

type RotateKeyResponse = service.RotateKeyResponse

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Store  string `json:"store"`
	Signer string `json:"signer"`
}
