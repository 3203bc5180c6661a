package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// BearerVerifier lets AuthnMiddleware accept this service's own access
// tokens.
type BearerVerifier struct {
	Access *service.AccessVerifier
}

func (v BearerVerifier) VerifyBearer(ctx context.Context, token string) (httpx.Principal, error) {
	claims, err := v.Access.Verify(ctx, token)
	if errors.Is(err, service.ErrStoreUnavailable) {
		return httpx.Principal{}, fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
	}
	if err != nil {
		return httpx.Principal{}, err
	}

	return httpx.Principal{
		Subject:   claims.Subject,
		TokenID:   claims.TokenID,
		Roles:     claims.Roles,
		Scopes:    claims.Scopes,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
