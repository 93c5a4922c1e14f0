package authgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const userContextKey contextKey = "authgate.user"

// UserFromContext returns the session principal placed on the request
// context by SessionMiddleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

// SessionMiddleware validates the session cookie on every request it
// wraps and makes the principal available through the request context.
type SessionMiddleware struct {
	Auth       *Coordinator
	CookieName string

	// LoginURL, when set, is where HTML-accepting requests without a
	// valid session are redirected; API requests always get a JSON 401.
	LoginURL string

	Logger *slog.Logger
}

func (m *SessionMiddleware) cookieName() string {
	if m.CookieName != "" {
		return m.CookieName
	}
	return "authgate_session"
}

// ExtractUser resolves the session if present and attaches the user to
// the context. It never rejects; use RequireSession to enforce login.
func (m *SessionMiddleware) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := m.sessionUser(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests without a valid, unexpired session.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.sessionUser(r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) && !errors.Is(err, http.ErrNoCookie) {
				if m.Logger != nil {
					m.Logger.Error("session validation failed", "err", err)
				}
			}
			m.reject(w, r)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) sessionUser(r *http.Request) (*User, error) {
	cookie, err := r.Cookie(m.cookieName())
	if err != nil {
		return nil, err
	}
	return m.Auth.Session(r.Context(), cookie.Value)
}

func (m *SessionMiddleware) reject(w http.ResponseWriter, r *http.Request) {
	if m.LoginURL != "" && acceptsHTML(r) {
		http.Redirect(w, r, m.LoginURL, http.StatusFound)
		return
	}
	writeAuthError(w, http.StatusUnauthorized, NewAuthError(ErrCodeUnauthorized, "Not authenticated", ""))
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
