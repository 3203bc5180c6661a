package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite/gen"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

type LoginAttempts struct {
	q     *gen.Queries
	clock clockx.Clock
}

func (r *LoginAttempts) Get(ctx context.Context, subject string) (domain.LoginAttemptState, error) {
	row, err := r.q.GetLoginAttempt(ctx, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LoginAttemptState{Subject: subject}, nil
	}
	if err != nil {
		return domain.LoginAttemptState{}, dbErr(err)
	}

	return domain.LoginAttemptState{
		Subject:      subject,
		FailureCount: int(row.FailureCount),
		LockedUntil:  fromMillis(row.LockedUntil),
	}, nil
}

func (r *LoginAttempts) IncrementFailure(ctx context.Context, subject string, window time.Duration) (int, error) {
	now := r.clock.Now().UnixMilli()

	cutoff := int64(math.MinInt64)
	if window > 0 {
		cutoff = now - window.Milliseconds()
	}

	n, err := r.q.IncrementLoginFailure(ctx, gen.IncrementLoginFailureParams{
		Subject: subject,
		Now:     now,
		Cutoff:  cutoff,
	})
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}

func (r *LoginAttempts) Lock(ctx context.Context, subject string, until time.Time) error {
	return dbErr(r.q.LockLogin(ctx, gen.LockLoginParams{
		Subject:     subject,
		LockedUntil: toMillis(until),
	}))
}

func (r *LoginAttempts) Reset(ctx context.Context, subject string) error {
	return dbErr(r.q.DeleteLoginAttempt(ctx, subject))
}
