package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyScope lets the request through when the authenticated caller
// holds at least one of required. Use it after AuthnMiddleware.
func RequireAnyScope(required ...string) Middleware {
	challenge := `Bearer error="insufficient_scope", scope="` + strings.Join(required, " ") + `"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(r.Context())
			if slices.ContainsFunc(p.Scopes, func(s string) bool { return slices.Contains(required, s) }) {
				next.ServeHTTP(w, r)
				return
			}

			// RFC 6750 section 3.1
			w.Header().Set("WWW-Authenticate", challenge)
			WriteOAuthError(w, http.StatusForbidden, "insufficient_scope",
				"token lacks a required scope: "+strings.Join(required, ", "))
		})
	}
}
