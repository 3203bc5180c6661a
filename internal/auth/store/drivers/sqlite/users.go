package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite/gen"
)

type Users struct {
	q *gen.Queries
}

func (r *Users) FindBySubject(ctx context.Context, subject string) (domain.User, error) {
	row, err := r.q.GetUserBySubject(ctx, subject)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

// Create stores roles space separated, so role names must not contain spaces.
func (r *Users) Create(ctx context.Context, u domain.User) error {
	n, err := r.q.CreateUser(ctx, gen.CreateUserParams{
		Subject:      u.Subject,
		PasswordHash: u.PasswordHash,
		Roles:        strings.Join(u.Roles, " "),
		Disabled:     u.Disabled,
		CreatedAt:    toMillis(u.CreatedAt),
	})
	if err != nil {
		return dbErr(err)
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *Users) Count(ctx context.Context) (int, error) {
	n, err := r.q.CountUsers(ctx)
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}
