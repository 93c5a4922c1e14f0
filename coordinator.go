package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Coordinator is the single entry point request handlers use: receive
// credentials, select a strategy, resolve an identity, establish a
// session. Strategy selection is static per operation; there is no
// multi-strategy fallback chain.
type Coordinator struct {
	Strategies *Registry
	Users      UserStore
	Sessions   *SessionManager
	Logger     *slog.Logger

	local *LocalStrategy
}

// NewCoordinator wires a coordinator with the local strategy registered.
// OAuth strategies are added per provider with RegisterStrategy.
func NewCoordinator(users UserStore, hasher *Hasher, sessions *SessionManager, logger *slog.Logger) *Coordinator {
	local := &LocalStrategy{Users: users, Hasher: hasher, Logger: logger}
	return &Coordinator{
		Strategies: NewRegistry(local),
		Users:      users,
		Sessions:   sessions,
		Logger:     logger,
		local:      local,
	}
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// RegisterStrategy adds a strategy (e.g. an OAuthStrategy per provider).
func (c *Coordinator) RegisterStrategy(s Strategy) {
	c.Strategies.Register(s)
}

// Login authenticates an email/password pair and establishes a session.
// Returns ErrInvalidCredentials for an unknown email or a wrong password,
// indistinguishably.
func (c *Coordinator) Login(ctx context.Context, email, password string) (string, error) {
	strategy, ok := c.Strategies.Get(StrategyLocal)
	if !ok {
		return "", fmt.Errorf("local strategy not configured")
	}

	user, err := strategy.Authenticate(ctx, Credentials{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", ErrInvalidCredentials
		}
		c.logger().Error("login failed", "email", email, "err", err)
		return "", fmt.Errorf("authenticate: %w", err)
	}

	return c.Sessions.Establish(user)
}

// Register creates a local account and logs the new user straight in.
// Returns ErrAccountExists when the email is already registered, even
// when the conflict is a lost concurrent race.
func (c *Coordinator) Register(ctx context.Context, email, password string) (string, error) {
	user, err := c.local.Register(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return "", ErrAccountExists
		}
		c.logger().Error("registration failed", "email", email, "err", err)
		return "", fmt.Errorf("register: %w", err)
	}

	return c.Sessions.Establish(user)
}

// OAuthCallback resolves a provider profile delivered by a completed
// authorization-code exchange and establishes a session. The provider
// name selects the registered strategy.
func (c *Coordinator) OAuthCallback(ctx context.Context, provider string, profile *Profile) (string, error) {
	strategy, ok := c.Strategies.Get(provider)
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", ErrProviderExchange, provider)
	}

	email := ""
	if profile != nil {
		email = profile.Email
	}
	user, err := strategy.Authenticate(ctx, Credentials{Email: email, Profile: profile})
	if err != nil {
		if errors.Is(err, ErrProviderExchange) {
			return "", err
		}
		c.logger().Error("oauth callback failed", "provider", provider, "err", err)
		return "", fmt.Errorf("oauth callback: %w", err)
	}

	return c.Sessions.Establish(user)
}

// Session resolves a session token to its stored principal.
func (c *Coordinator) Session(ctx context.Context, token string) (*User, error) {
	return c.Sessions.Validate(token)
}

// Logout terminates the session behind token; idempotent.
func (c *Coordinator) Logout(ctx context.Context, token string) error {
	return c.Sessions.Terminate(token)
}

// UpdateProfile merges profile fields for a user. The active session's
// principal snapshot is not refreshed; callers see the update after
// re-login or through a fresh store read.
func (c *Coordinator) UpdateProfile(ctx context.Context, email string, fields map[string]string) error {
	if err := c.Users.UpdateProfile(ctx, email, fields); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		c.logger().Error("profile update failed", "email", email, "err", err)
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
