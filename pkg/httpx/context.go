package httpx

import (
	"context"
	"time"
)

type ctxKey struct{}

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	Subject   string
	TokenID   string
	Roles     []string
	Scopes    []string
	ExpiresAt time.Time
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
