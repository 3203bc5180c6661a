package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// CredentialChecker verifies a subject's password and returns the matching
// directory entry.
type CredentialChecker interface {
	Check(ctx context.Context, subject, password string) (domain.User, error)
}

// DirectoryCredentials checks passwords against argon2id hashes in the user
// directory.
type DirectoryCredentials struct {
	users     store.Users
	hasher    *cryptox.PasswordHasher
	dummyHash string
}

func NewDirectoryCredentials(users store.Users, hasher *cryptox.PasswordHasher) (*DirectoryCredentials, error) {
	// Unknown subjects are verified against this so they take as long as
	// known ones.
	dummy, err := hasher.Hash("tollgate-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("credentials: dummy hash: %w", err)
	}
	return &DirectoryCredentials{users: users, hasher: hasher, dummyHash: dummy}, nil
}

func (c *DirectoryCredentials) Check(ctx context.Context, subject, password string) (domain.User, error) {
	user, err := c.users.FindBySubject(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		_ = c.hasher.Verify(password, c.dummyHash)
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, storeErr("user lookup", err)
	}

	if err := c.hasher.Verify(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if user.Disabled {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}
