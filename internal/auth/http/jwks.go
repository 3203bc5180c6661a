package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// JWKSHandler exposes the public verification keys. HMAC deployments publish
// an empty set.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks := keys.PublicJWKS()
		if jwks.Keys == nil {
			jwks.Keys = []jwtx.JWK{}
		}
		httpx.WriteJSON(w, http.StatusOK, jwks)
	}
}
