package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/clockx"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockx.Clock

	// Core dependencies
	ports      *store.Ports
	keyManager *jwtx.KeyManager
	hasher     *cryptox.PasswordHasher

	// Services
	Services            *Services
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// Services is the wired service graph. Exposed so tests and tools can drive
// the same objects the HTTP layer uses.
type Services struct {
	Issuer      *service.TokenIssuer
	Validator   *service.TokenValidator
	Blacklist   *service.TokenBlacklist
	Sessions    *service.SessionManager
	Lockout     *service.LoginAttemptPolicy
	Login       service.Authenticator
	Refresh     service.Refresher
	Logout      *service.LogoutService
	Access      *service.AccessVerifier
	KeyRotation *service.KeyRotationService // nil when disabled
	Bootstrap   *service.BootstrapService
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:   cfg,
		clock: clockx.System{},
		logger: slogx.New(slogx.Config{
			Service: "tollgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	keyManager, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.keyManager = keyManager

	ctx := context.Background()
	ports, err := OpenStores(ctx, cfg, app.clock, app.logger)
	if err != nil {
		return nil, err
	}
	app.ports = ports

	if err := app.initServices(); err != nil {
		_ = ports.Close()
		return nil, err
	}

	if err := app.bootstrap(ctx); err != nil {
		_ = ports.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler, for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.ports.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.ports.Close(); err != nil {
		app.logger.Error("error closing stores", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initServices builds the service graph on top of the selected stores.
func (app *Application) initServices() error {
	cfg := app.cfg
	ports := app.ports

	policy, err := cfg.ParseScopePolicy()
	if err != nil {
		return err
	}
	resolver := service.NewRoleScopeResolver(policy)

	creds, err := service.NewDirectoryCredentials(ports.Users, app.hasher)
	if err != nil {
		return err
	}

	s := &Services{}
	s.Issuer = &service.TokenIssuer{
		Keys:  app.keyManager,
		Clock: app.clock,
		Config: service.IssuerConfig{
			Issuer:          cfg.Issuer,
			AccessAudience:  cfg.AccessAudience,
			RefreshAudience: cfg.RefreshAudience,
		},
	}
	s.Validator = service.NewTokenValidator(app.keyManager.KeySet, app.clock, service.ValidatorConfig{
		Algorithm:       app.keyManager.Algorithm(),
		Issuer:          cfg.Issuer,
		AccessAudience:  cfg.AccessAudience,
		RefreshAudience: cfg.RefreshAudience,
		ClockSkew:       cfg.ClockSkew,
	})
	s.Blacklist = &service.TokenBlacklist{Store: ports.Blacklist, Clock: app.clock}
	s.Sessions = service.NewSessionManager(ports.Sessions, ports.RefreshTokens, s.Blacklist, cfg.MaxSessions)
	s.Lockout = &service.LoginAttemptPolicy{
		Store: ports.LoginAttempts,
		Clock: app.clock,
		Config: service.LockoutConfig{
			Threshold:    cfg.LoginFailureThreshold,
			LockDuration: cfg.LoginLockDuration,
			Window:       cfg.LoginFailureWindow,
		},
	}

	s.Login = service.LoggingAuthenticator{Next: &service.LoginService{
		Lockout:       s.Lockout,
		Credentials:   creds,
		Resolver:      resolver,
		Issuer:        s.Issuer,
		RefreshTokens: ports.RefreshTokens,
		Sessions:      s.Sessions,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}}
	s.Refresh = service.LoggingRefresher{Next: &service.RefreshService{
		Validator:       s.Validator,
		RefreshTokens:   ports.RefreshTokens,
		Guard:           ports.Guard,
		Blacklist:       s.Blacklist,
		Sessions:        s.Sessions,
		Users:           ports.Users,
		Resolver:        resolver,
		Issuer:          s.Issuer,
		Clock:           app.clock,
		RefreshAudience: cfg.RefreshAudience,
		Rotation:        cfg.RotationEnabled,
		AccessTTL:       cfg.AccessTTL,
		RefreshTTL:      cfg.RefreshTTL,
	}}
	s.Logout = &service.LogoutService{
		Validator:     s.Validator,
		Blacklist:     s.Blacklist,
		RefreshTokens: ports.RefreshTokens,
		Sessions:      s.Sessions,
	}
	s.Access = &service.AccessVerifier{Validator: s.Validator, Blacklist: s.Blacklist}
	s.Bootstrap = &service.BootstrapService{Users: ports.Users, Hasher: app.hasher, Clock: app.clock}

	if cfg.KeyRotationEnabled {
		// Superseded keys must outlive every refresh token they signed.
		s.KeyRotation = service.NewKeyRotationService(app.keyManager, app.clock, cfg.KeyGracePeriod)
		app.logger.Info("key rotation enabled", "grace_period", cfg.KeyGracePeriod)
	}

	app.Services = s
	app.housekeepingService = service.NewHousekeepingService(
		ports.RefreshTokens,
		s.KeyRotation,
		app.clock,
		app.logger,
		cfg.HousekeepingInterval,
	)
	return nil
}

// bootstrap seeds the first user when AUTH_BOOTSTRAP_SUBJECT is set and the
// directory is empty.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapSubject == "" {
		return nil
	}

	password, err := app.Services.Bootstrap.Bootstrap(ctx,
		app.cfg.BootstrapSubject, app.cfg.BootstrapPassword, app.cfg.BootstrapRoles)
	if errors.Is(err, service.ErrBootstrapAlready) {
		app.logger.Info("user directory already populated, skipping bootstrap")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bootstrap user: %w", err)
	}

	if app.cfg.BootstrapPassword == "" {
		// Shown once. There is no other way to recover it.
		app.logger.Warn("bootstrap user created with generated password",
			"subject", app.cfg.BootstrapSubject,
			"password", password,
		)
	} else {
		app.logger.Info("bootstrap user created", "subject", app.cfg.BootstrapSubject)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		httpapi.BearerVerifier{Access: app.Services.Access},
		BuildVersion,
		app.ports,
		app.logger,
	)

	router.Authenticator = app.Services.Login
	router.Refresher = app.Services.Refresh
	router.LogoutService = app.Services.Logout
	router.SessionManager = app.Services.Sessions
	router.KeyRotationService = app.Services.KeyRotation
	router.LoginLimit, router.RefreshLimit = app.cfg.RateLimits()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
