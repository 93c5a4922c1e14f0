package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// OAuthStrategy resolves a provider profile, obtained from a completed
// authorization-code exchange, into a user record. The HTTP handshake
// itself (redirect, state check, code exchange, profile fetch) lives in
// the oauth2 package; by the time this strategy runs the profile is
// already verified by the provider.
type OAuthStrategy struct {
	// Provider is the registry name, e.g. "google".
	Provider string

	Users  UserStore
	Logger *slog.Logger
}

func (s *OAuthStrategy) Name() string { return s.Provider }

func (s *OAuthStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Authenticate looks the profile's email up and lazily creates the user
// on first sight. Created users carry the sentinel password digest and
// can never authenticate locally. Repeated callbacks for the same email
// are idempotent: the insert race loser re-reads the winner's row, so no
// duplicate rows ever persist.
func (s *OAuthStrategy) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	profile := creds.Profile
	if profile == nil || profile.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrProviderExchange)
	}

	user, err := s.Users.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user, err = s.Users.CreateUser(ctx, profile.Email, SentinelPasswordHash)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Lost a concurrent first-seen race; the winner's row is ours.
			return s.Users.GetUserByEmail(ctx, profile.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// First-seen upsert may seed profile attributes from the provider.
	fields := map[string]string{}
	if profile.Name != "" {
		fields["name"] = profile.Name
	}
	if profile.Picture != "" {
		fields["picture"] = profile.Picture
	}
	if len(fields) > 0 {
		if err := s.Users.UpdateProfile(ctx, profile.Email, fields); err != nil {
			s.logger().Warn("failed to seed profile from provider", "email", profile.Email, "err", err)
		} else {
			for k, v := range fields {
				if user.Profile == nil {
					user.Profile = map[string]string{}
				}
				user.Profile[k] = v
			}
		}
	}

	s.logger().Info("created user from oauth callback", "provider", s.Provider, "email", profile.Email)
	return user, nil
}
