package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LocalStrategy authenticates an email/password pair against the user
// store via the password hasher.
type LocalStrategy struct {
	Users  UserStore
	Hasher *Hasher
	Logger *slog.Logger
}

func (s *LocalStrategy) Name() string { return StrategyLocal }

func (s *LocalStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Authenticate resolves an email/password pair. A missing user and a
// wrong password are indistinguishable to the caller: both come back as
// ErrInvalidCredentials.
func (s *LocalStrategy) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.Hasher.Verify(creds.Password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMalformedHash) {
			// Corrupted digest, or the OAuth sentinel. Fatal for this
			// record; log it and reject like any bad password so the
			// caller learns nothing about the stored state.
			s.logger().Error("stored password digest unusable", "email", creds.Email, "err", err)
		}
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register creates a new local user. Duplicate detection relies on the
// store's atomic insert, so two concurrent registrations of the same
// email produce exactly one row; both the plain conflict and the race
// loser surface as ErrAccountExists.
func (s *LocalStrategy) Register(ctx context.Context, email, password string) (*User, error) {
	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.CreateUser(ctx, email, digest)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger().Info("registered local user", "email", email)
	return user, nil
}
