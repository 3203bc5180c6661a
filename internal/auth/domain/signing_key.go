package domain

import "time"

// SigningKey describes a key held by the running key manager. Private
// material never leaves jwtx.
type SigningKey struct {
	Kid       string     `json:"kid"`
	Algorithm string     `json:"alg"`
	Current   bool       `json:"current"`
	AddedAt   time.Time  `json:"added_at"`
	RetireAt  *time.Time `json:"retire_at,omitempty"` // set once superseded
}
