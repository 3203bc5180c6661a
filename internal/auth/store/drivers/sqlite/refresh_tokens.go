package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite/gen"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
)

// familyMarkerMinTTL is how long a revoked family stays marked when none of
// its records are left to date it.
const familyMarkerMinTTL = time.Minute

type RefreshTokens struct {
	q     *gen.Queries
	clock clockx.Clock
}

func (r *RefreshTokens) Save(ctx context.Context, rec domain.RefreshTokenRecord) error {
	n, err := r.q.CreateRefreshToken(ctx, gen.CreateRefreshTokenParams{
		ID:         rec.TokenID,
		FamilyID:   rec.FamilyID,
		Subject:    rec.Subject,
		PreviousID: mapStringNull(rec.PreviousTokenID),
		IssuedAt:   toMillis(rec.IssuedAt),
		ExpiresAt:  toMillis(rec.ExpiresAt),
		FamilyID_2: rec.FamilyID,
	})
	if err != nil {
		return dbErr(err)
	}
	if n > 0 {
		return nil
	}

	revoked, err := r.q.IsRefreshTokenFamilyRevoked(ctx, rec.FamilyID)
	if err != nil {
		return dbErr(err)
	}
	if revoked != 0 {
		return store.ErrFamilyRevoked
	}
	return store.ErrAlreadyExists
}

func (r *RefreshTokens) FindByID(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error) {
	row, err := r.q.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return domain.RefreshTokenRecord{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *RefreshTokens) Revoke(ctx context.Context, tokenID string) error {
	n, err := r.q.RevokeRefreshToken(ctx, tokenID)
	if err != nil {
		return dbErr(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *RefreshTokens) RevokeFamily(ctx context.Context, familyID string) ([]domain.RefreshTokenRecord, error) {
	// Mark first: a Save racing with the update below is then refused.
	err := r.q.MarkRefreshTokenFamilyRevoked(ctx, gen.MarkRefreshTokenFamilyRevokedParams{
		FamilyID:   familyID,
		ExpiresAt:  toMillis(r.clock.Now().Add(familyMarkerMinTTL)),
		FamilyID_2: familyID,
	})
	if err != nil {
		return nil, dbErr(err)
	}

	rows, err := r.q.RevokeRefreshTokenFamily(ctx, familyID)
	if err != nil {
		return nil, dbErr(err)
	}

	out := make([]domain.RefreshTokenRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapRefreshToken(row))
	}
	return out, nil
}

func (r *RefreshTokens) Delete(ctx context.Context, tokenID string) error {
	return dbErr(r.q.DeleteRefreshToken(ctx, tokenID))
}

func (r *RefreshTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.q.DeleteExpiredRefreshTokens(ctx, before.UnixMilli())
	if err != nil {
		return 0, dbErr(err)
	}
	if err := r.q.DeleteExpiredRevokedFamilies(ctx, before.UnixMilli()); err != nil {
		return n, dbErr(err)
	}
	return n, nil
}
