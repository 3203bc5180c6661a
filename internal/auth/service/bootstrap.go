package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

var ErrBootstrapAlready = errors.New("directory already bootstrapped")

// BootstrapService seeds the first user of an empty directory.
type BootstrapService struct {
	Users  store.Users
	Hasher *cryptox.PasswordHasher
	Clock  clockx.Clock
}

// Bootstrap creates subject with roles when the directory is empty. An empty
// password is replaced by a generated one, which is returned so it can be
// shown once.
func (s *BootstrapService) Bootstrap(ctx context.Context, subject, password string, roles []string) (string, error) {
	n, err := s.Users.Count(ctx)
	if err != nil {
		return "", storeErr("user count", err)
	}
	if n > 0 {
		return "", ErrBootstrapAlready
	}

	if password == "" {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return "", fmt.Errorf("bootstrap: generate password: %w", err)
		}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("bootstrap: hash password: %w", err)
	}

	canon := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = CanonicalRole(r); r != "" {
			canon = append(canon, r)
		}
	}

	err = s.Users.Create(ctx, domain.User{
		Subject:      subject,
		PasswordHash: hash,
		Roles:        canon,
		CreatedAt:    s.Clock.Now(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return "", ErrBootstrapAlready
	}
	if err != nil {
		return "", storeErr("user create", err)
	}
	return password, nil
}
