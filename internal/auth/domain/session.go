package domain

import "time"

// SessionEntry is one active refresh token of a subject. Registries keep them
// in insertion order, oldest first.
type SessionEntry struct {
	Subject   string    `json:"-"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
