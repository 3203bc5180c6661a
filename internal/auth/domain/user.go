package domain

import "time"

// User is a directory entry. The core only needs the subject, the password
// hash for the credential check and the roles.
type User struct {
	Subject      string
	PasswordHash string // argon2 encoded
	Roles        []string
	Disabled     bool
	CreatedAt    time.Time
}
