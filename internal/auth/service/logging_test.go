package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	pair domain.IssuedTokenPair
	err  error
}

func (s stubRefresher) Refresh(context.Context, string) (domain.IssuedTokenPair, error) {
	return s.pair, s.err
}

type stubAuthenticator struct{ err error }

func (s stubAuthenticator) Login(_ context.Context, subject, _ string) (domain.IssuedTokenPair, error) {
	if s.err != nil {
		return domain.IssuedTokenPair{}, s.err
	}
	return domain.IssuedTokenPair{Subject: subject, RefreshTokenID: "rt-1"}, nil
}

func captureLog(t *testing.T) (context.Context, func() map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := slogx.WithContext(context.Background(), logger)

	return ctx, func() map[string]any {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		return entry
	}
}

func TestLoggingRefresher(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
		wantKey   string
	}{
		{
			name:      "reuse",
			err:       &ReuseDetectedError{Subject: "alice", FamilyID: "fam-1", TokenID: "rt-1", Revoked: 3},
			wantLevel: "WARN",
			wantMsg:   "refresh token reuse detected, family revoked",
			wantKey:   "family_id",
		},
		{
			name:      "invalid",
			err:       invalidToken(errConsumed),
			wantLevel: "INFO",
			wantMsg:   "refresh rejected",
			wantKey:   "reason",
		},
		{
			name:      "store down",
			err:       storeErr("refresh lookup", errConnRefused),
			wantLevel: "ERROR",
			wantMsg:   "refresh failed",
			wantKey:   "error",
		},
		{
			name:      "success",
			wantLevel: "INFO",
			wantMsg:   "refresh succeeded",
			wantKey:   "refresh_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, entry := captureLog(t)
			r := LoggingRefresher{Next: stubRefresher{
				pair: domain.IssuedTokenPair{Subject: "alice", RefreshTokenID: "rt-2"},
				err:  tt.err,
			}}

			_, err := r.Refresh(ctx, "token")
			require.ErrorIs(t, err, tt.err)

			e := entry()
			require.Equal(t, tt.wantLevel, e["level"])
			require.Equal(t, tt.wantMsg, e["msg"])
			require.Contains(t, e, tt.wantKey)
		})
	}
}

func TestLoggingRefresherReuseFields(t *testing.T) {
	ctx, entry := captureLog(t)
	reuse := &ReuseDetectedError{Subject: "alice", FamilyID: "fam-1", Revoked: 2}

	_, err := LoggingRefresher{Next: stubRefresher{err: reuse}}.Refresh(ctx, "token")
	require.ErrorIs(t, err, ErrRefreshTokenReuse)

	e := entry()
	require.Equal(t, "fam-1", e["family_id"])
	require.EqualValues(t, 2, e["revoked"])
}

func TestLoggingAuthenticator(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"success", nil, "INFO"},
		{"bad password", ErrInvalidCredentials, "INFO"},
		{"locked", ErrSubjectLocked, "WARN"},
		{"store down", storeErr("user lookup", errConnRefused), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, entry := captureLog(t)

			_, err := LoggingAuthenticator{Next: stubAuthenticator{err: tt.err}}.Login(ctx, "alice", "pw")
			require.ErrorIs(t, err, tt.err)

			e := entry()
			require.Equal(t, tt.wantLevel, e["level"])
			require.Equal(t, "alice", e["subject"])
			require.NotContains(t, e, "password")
		})
	}
}
