package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	readiness    store.Pinger

	Authenticator      service.Authenticator
	Refresher          service.Refresher
	LogoutService      *service.LogoutService
	SessionManager     *service.SessionManager
	KeyRotationService *service.KeyRotationService // nil disables /v1/keys

	LoginLimit   httpx.RateLimitConfig
	RefreshLimit httpx.RateLimitConfig
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier httpx.TokenVerifier,
	buildVersion string,
	readiness store.Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		readiness:    readiness,
		LoginLimit:   httpx.LoginLimit,
		RefreshLimit: httpx.RefreshLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerKeyRotation()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Limited by IP + username so one client cannot spray many accounts and
	// one account cannot be sprayed from one client.
	login := &LoginHandler{Authenticator: r.Authenticator}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndFormField(r.LoginLimit, "username"),
		),
	)

	refresh := &RefreshHandler{Refresher: r.Refresher}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(r.RefreshLimit),
		),
	)

	logout := &LogoutHandler{LogoutService: r.LogoutService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(logout.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(httpx.SessionLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(http.HandlerFunc(logout.HandleLogoutAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(httpx.SessionLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionManager: r.SessionManager}

	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(httpx.SessionLimit),
		),
	)
}

func (r *Router) registerKeyRotation() {
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	r.Mux.Handle("POST /v1/keys/rotate",
		httpx.Chain(http.HandlerFunc(h.HandleRotate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(ScopeAdminKeys),
			httpx.RateLimitBySubject(httpx.SessionLimit),
		),
	)
	r.Mux.Handle("GET /v1/keys",
		httpx.Chain(http.HandlerFunc(h.HandleListKeys),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(ScopeAdminKeys),
			httpx.RateLimitBySubject(httpx.SessionLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.readiness, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
