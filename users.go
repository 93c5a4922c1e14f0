package authgate

import (
	"context"
	"time"
)

// SentinelPasswordHash is stored as the digest of users created through
// an OAuth callback. It is not a valid bcrypt digest, so Hasher.Verify
// rejects it for every input and such users can never authenticate with
// the local strategy.
const SentinelPasswordHash = "oauth"

// User is the canonical identity record. There is exactly one User per
// email; the email is the sole external identifier across strategies, so
// an OAuth login and a local login with the same email resolve to the
// same record.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"`
	Profile      map[string]string `json:"profile,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers can hold a User across requests
// without sharing the profile map.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Profile != nil {
		out.Profile = make(map[string]string, len(u.Profile))
		for k, v := range u.Profile {
			out.Profile[k] = v
		}
	}
	return &out
}

// UserStore is the query interface over the persistent user table. It
// carries no business logic; implementations live under stores/.
type UserStore interface {
	// GetUserByEmail returns ErrUserNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser inserts a new user record. The existence check and the
	// insert are one atomic operation (unique-constraint enforced), so
	// concurrent creations of the same email yield exactly one row; the
	// losers get ErrEmailTaken.
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)

	// UpdateProfile merges fields into the user's profile attributes.
	// Returns ErrUserNotFound when the user is absent.
	UpdateProfile(ctx context.Context, email string, fields map[string]string) error
}

// Credentials are what a caller presents for one authentication attempt.
// They exist only for the duration of the attempt and are never stored.
type Credentials struct {
	Email    string
	Password string

	// Profile is set instead of Password for OAuth attempts.
	Profile *Profile
}

// Profile is the identity document an OAuth provider returns after a
// successful authorization-code exchange.
type Profile struct {
	Email   string `json:"email"`
	Subject string `json:"id"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}
