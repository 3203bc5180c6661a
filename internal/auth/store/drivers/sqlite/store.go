package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite/gen"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	_ "modernc.org/sqlite"
)

type Store struct {
	db    *sql.DB
	q     *gen.Queries
	dsn   string
	clock clockx.Clock
}

// NewStore opens the database. Call ApplyMigrations before use.
func NewStore(dsn string, clock clockx.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:    db,
		q:     gen.New(db),
		dsn:   dsn,
		clock: clock,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return dbErr(err)
	}
	return nil
}

func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{q: s.q, clock: s.clock} }
func (s *Store) Users() *Users                 { return &Users{q: s.q} }
func (s *Store) LoginAttempts() *LoginAttempts { return &LoginAttempts{q: s.q, clock: s.clock} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return dbErr(err)
}

// dbErr marks driver failures as transient backend errors.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func mapRefreshToken(row gen.RefreshToken) domain.RefreshTokenRecord {
	return domain.RefreshTokenRecord{
		TokenID:         row.ID,
		FamilyID:        row.FamilyID,
		Subject:         row.Subject,
		IssuedAt:        fromMillis(row.IssuedAt),
		ExpiresAt:       fromMillis(row.ExpiresAt),
		Revoked:         row.Revoked,
		PreviousTokenID: mapNullString(row.PreviousID),
	}
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		Subject:      row.Subject,
		PasswordHash: row.PasswordHash,
		Roles:        strings.Fields(row.Roles),
		Disabled:     row.Disabled,
		CreatedAt:    fromMillis(row.CreatedAt),
	}
}
