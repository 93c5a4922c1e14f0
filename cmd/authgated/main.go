// Command authgated runs the authentication service: local and OAuth
// login, registration and session-backed profile routes. Configuration
// comes from the environment; see authgate.Config.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/panyam/authgate"
	"github.com/panyam/authgate/oauth2"
	"github.com/panyam/authgate/stores/memory"
	"github.com/panyam/authgate/stores/postgres"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := authgate.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var users authgate.UserStore
	if cfg.DatabaseURL != "" {
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		users = store
		logger.Info("using postgres user store")
	} else {
		logger.Warn("DATABASE_URL not set; users are kept in memory")
		users = memory.New()
	}

	sessions := authgate.NewSessionManager(memstore.New(), cfg.SessionSecret)
	sessions.TTL = cfg.SessionTTL
	sessions.Logger = logger

	auth := authgate.NewCoordinator(users, authgate.NewHasher(cfg.BcryptCost), sessions, logger)

	handlers := &authgate.Handlers{
		Auth:         auth,
		CookieName:   cfg.CookieName,
		CookieMaxAge: cfg.CookieMaxAge,
		LoginURL:     "/login",
		Logger:       logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/login", handlers.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", handlers.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/logout", handlers.HandleLogout).Methods(http.MethodGet, http.MethodPost)

	mw := &authgate.SessionMiddleware{
		Auth:       auth,
		CookieName: cfg.CookieName,
		LoginURL:   "/login",
		Logger:     logger,
	}
	r.Handle("/profile", mw.RequireSession(http.HandlerFunc(handlers.HandleProfile))).Methods(http.MethodGet)
	r.Handle("/submit", mw.RequireSession(http.HandlerFunc(handlers.HandleSubmit))).Methods(http.MethodPost)

	if cfg.Google.Enabled() {
		auth.RegisterStrategy(&authgate.OAuthStrategy{Provider: "google", Users: users, Logger: logger})
		provider := oauth2.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, handlers.HandleOAuthProfile)
		provider.Logger = logger
		r.HandleFunc("/auth/google", provider.HandleRedirect).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/callback", provider.HandleCallback).Methods(http.MethodGet)
		logger.Info("google login enabled")
	}
	if cfg.GitHub.Enabled() {
		auth.RegisterStrategy(&authgate.OAuthStrategy{Provider: "github", Users: users, Logger: logger})
		provider := oauth2.NewGitHub(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL, handlers.HandleOAuthProfile)
		provider.Logger = logger
		r.HandleFunc("/auth/github", provider.HandleRedirect).Methods(http.MethodGet)
		r.HandleFunc("/auth/github/callback", provider.HandleCallback).Methods(http.MethodGet)
		logger.Info("github login enabled")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
