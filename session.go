package authgate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an established session stays valid.
const DefaultSessionTTL = 5 * time.Hour

// expiredRetention keeps an expired envelope findable in the store for a
// while so Validate can report expiry rather than absence.
const expiredRetention = time.Hour

// SessionStore persists serialized session envelopes keyed by an opaque
// session id. The method set matches the scs store contract, so scs
// backends such as memstore satisfy it directly.
type SessionStore interface {
	// Find returns the envelope for a session id, or found=false when
	// the id is unknown or the backend has already evicted it.
	Find(token string) (b []byte, found bool, err error)

	// Commit stores an envelope; the backend may evict it after expiry.
	Commit(token string, b []byte, expiry time.Time) error

	// Delete removes an envelope. Deleting an unknown id is a no-op.
	Delete(token string) error
}

// sessionEnvelope is the stored principal: the full user snapshot plus
// its lifetime. Profile updates made after login are invisible to the
// session until re-login.
type sessionEnvelope struct {
	User      *User     `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager issues, validates and terminates sessions. The token
// handed to callers is an HMAC-signed JWT whose subject is the session
// id; it carries no principal data, only the lookup key, so validation
// stays a stateful O(1) store read. Tokens are cookie-compatible opaque
// strings.
type SessionManager struct {
	Store  SessionStore
	Secret string
	TTL    time.Duration
	Issuer string
	Logger *slog.Logger
}

func NewSessionManager(store SessionStore, secret string) *SessionManager {
	return &SessionManager{Store: store, Secret: secret, TTL: DefaultSessionTTL}
}

func (m *SessionManager) ttl() time.Duration {
	if m.TTL != 0 {
		return m.TTL
	}
	return DefaultSessionTTL
}

func (m *SessionManager) issuer() string {
	if m.Issuer != "" {
		return m.Issuer
	}
	return "authgate"
}

func (m *SessionManager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Establish serializes user as the session principal, stores it under a
// fresh unguessable id and returns the signed token for it.
func (m *SessionManager) Establish(user *User) (string, error) {
	now := time.Now()
	env := sessionEnvelope{
		User:      user.Clone(),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl()),
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("serialize session: %w", err)
	}

	sid := uuid.NewString()
	if err := m.Store.Commit(sid, b, env.ExpiresAt.Add(expiredRetention)); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	claims := jwt.MapClaims{
		"sub": sid,
		"iss": m.issuer(),
		"iat": now.Unix(),
		"exp": env.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.Secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	m.logger().Debug("session established", "user", user.Email, "expires_at", env.ExpiresAt)
	return token, nil
}

// Validate resolves a token back to the stored principal. Garbage and
// tampered tokens come back as ErrSessionNotFound; a real session past
// its TTL comes back as ErrSessionExpired, never as the stale principal.
func (m *SessionManager) Validate(token string) (*User, error) {
	sid, err := m.parseToken(token, true)
	if err != nil {
		return nil, err
	}

	b, found, err := m.Store.Find(sid)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	var env sessionEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if time.Now().After(env.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return env.User, nil
}

// Terminate removes the session behind token. Unknown, expired and
// already-terminated tokens are no-ops, not errors.
func (m *SessionManager) Terminate(token string) error {
	sid, err := m.parseToken(token, false)
	if err != nil {
		return nil
	}
	if err := m.Store.Delete(sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// parseToken verifies the token signature and extracts the session id.
// With checkExpiry set, an expired token maps to ErrSessionExpired;
// everything else unverifiable maps to ErrSessionNotFound.
func (m *SessionManager) parseToken(token string, checkExpiry bool) (string, error) {
	keyfunc := func(t *jwt.Token) (any, error) { return []byte(m.Secret), nil }
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.Parse(token, keyfunc, opts...)
	if err != nil {
		if checkExpiry && errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrSessionNotFound
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrSessionNotFound
	}
	return sub, nil
}
