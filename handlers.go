package authgate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MinPasswordLength applies to registration only; login accepts whatever
// is presented and lets verification fail.
const MinPasswordLength = 8

// Handlers exposes the coordinator over HTTP in the shape the rendering
// layer expects: /login, /register, /logout, /profile, /submit. Handlers
// emit JSON (or redirect); page rendering stays with the caller.
type Handlers struct {
	Auth *Coordinator

	// Session cookie parameters. Zero values fall back to
	// "authgate_session" and the session TTL.
	CookieName   string
	CookieMaxAge int

	// LoginURL, when set, is where browser (HTML-accepting) requests are
	// redirected on auth failures instead of receiving a JSON 401.
	LoginURL string

	Logger *slog.Logger
}

func (h *Handlers) cookieName() string {
	if h.CookieName != "" {
		return h.CookieName
	}
	return "authgate_session"
}

func (h *Handlers) cookieMaxAge() int {
	if h.CookieMaxAge > 0 {
		return h.CookieMaxAge
	}
	return int(DefaultSessionTTL / time.Second)
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Handler mounts all routes on a ServeMux. Profile and submit sit behind
// the session middleware.
func (h *Handlers) Handler() http.Handler {
	mw := &SessionMiddleware{
		Auth:       h.Auth,
		CookieName: h.cookieName(),
		LoginURL:   h.LoginURL,
		Logger:     h.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.HandleLogin)
	mux.HandleFunc("POST /register", h.HandleRegister)
	mux.HandleFunc("GET /logout", h.HandleLogout)
	mux.HandleFunc("POST /logout", h.HandleLogout)
	mux.Handle("GET /profile", mw.RequireSession(http.HandlerFunc(h.HandleProfile)))
	mux.Handle("POST /submit", mw.RequireSession(http.HandlerFunc(h.HandleSubmit)))
	return mux
}

// HandleLogin processes a local login attempt.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email, password, authErr := parseCredentialsForm(r)
	if authErr != nil {
		writeAuthError(w, http.StatusBadRequest, authErr)
		return
	}

	token, err := h.Auth.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeAuthError(w, http.StatusUnauthorized,
				NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"))
			return
		}
		h.writeInternalError(w, "login", err)
		return
	}

	h.setSessionCookie(w, token)
	h.writeSessionUser(w, r, http.StatusOK, token)
}

// HandleRegister creates an account and logs the new user straight in.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	email, password, authErr := parseCredentialsForm(r)
	if authErr != nil {
		writeAuthError(w, http.StatusBadRequest, authErr)
		return
	}
	if !emailRegex.MatchString(email) {
		writeAuthError(w, http.StatusBadRequest,
			NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email"))
		return
	}
	if len(password) < MinPasswordLength {
		writeAuthError(w, http.StatusBadRequest,
			NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters", "password"))
		return
	}

	token, err := h.Auth.Register(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			writeAuthError(w, http.StatusConflict,
				NewAuthError(ErrCodeEmailExists, "Email is already registered", "email"))
			return
		}
		h.writeInternalError(w, "register", err)
		return
	}

	h.setSessionCookie(w, token)
	h.writeSessionUser(w, r, http.StatusCreated, token)
}

// HandleLogout terminates the current session, clears the cookie and
// optionally redirects to ?to=.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName()); err == nil {
		if err := h.Auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger().Warn("logout failed", "err", err)
		}
	}
	h.clearSessionCookie(w)

	if to := r.URL.Query().Get("to"); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleProfile returns the logged-in user with fresh profile fields.
// The session principal is a login-time snapshot, so the fields are
// re-read from the store here.
func (h *Handlers) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, http.StatusUnauthorized, NewAuthError(ErrCodeUnauthorized, "Not authenticated", ""))
		return
	}

	user, err := h.Auth.Users.GetUserByEmail(r.Context(), sessionUser.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeAuthError(w, http.StatusUnauthorized, NewAuthError(ErrCodeUnauthorized, "Not authenticated", ""))
			return
		}
		h.writeInternalError(w, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleSubmit stores a profile field for the logged-in user, e.g. the
// submitted secret text.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, http.StatusUnauthorized, NewAuthError(ErrCodeUnauthorized, "Not authenticated", ""))
		return
	}

	fields, authErr := parseProfileForm(r)
	if authErr != nil {
		writeAuthError(w, http.StatusBadRequest, authErr)
		return
	}

	if err := h.Auth.UpdateProfile(r.Context(), user.Email, fields); err != nil {
		h.writeInternalError(w, "submit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleOAuthProfile finishes an OAuth login. Its signature matches the
// oauth2 package's CompleteFunc so providers can call it directly after
// a successful exchange.
func (h *Handlers) HandleOAuthProfile(w http.ResponseWriter, r *http.Request, provider string, profile *Profile) {
	token, err := h.Auth.OAuthCallback(r.Context(), provider, profile)
	if err != nil {
		h.logger().Warn("oauth login failed", "provider", provider, "err", err)
		// Recoverable for the user: back to the login page.
		target := h.LoginURL
		if target == "" {
			target = "/login"
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge(),
		Expires:  time.Now().Add(time.Duration(h.cookieMaxAge()) * time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now(),
		HttpOnly: true,
	})
}

func (h *Handlers) writeSessionUser(w http.ResponseWriter, r *http.Request, status int, token string) {
	user, err := h.Auth.Session(r.Context(), token)
	if err != nil {
		h.writeInternalError(w, "session readback", err)
		return
	}
	writeJSON(w, status, map[string]any{"user": user})
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, op string, err error) {
	h.logger().Error("request failed", "op", op, "err", err)
	writeAuthError(w, http.StatusInternalServerError,
		NewAuthError(ErrCodeInternal, "Something went wrong", ""))
}

// parseCredentialsForm accepts urlencoded forms and JSON bodies, the way
// the login and register pages post them.
func parseCredentialsForm(r *http.Request) (email, password string, authErr *AuthError) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return "", "", NewAuthError(ErrCodeMissingField, "Error parsing form", "")
		}
		email = r.FormValue("email")
		if email == "" {
			// the original pages post the email as "username"
			email = r.FormValue("username")
		}
		password = r.FormValue("password")
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", NewAuthError(ErrCodeMissingField, "Invalid post body", "")
		}
		email, _ = data["email"].(string)
		if email == "" {
			email, _ = data["username"].(string)
		}
		password, _ = data["password"].(string)
	}

	if email == "" || password == "" {
		return "", "", NewAuthError(ErrCodeMissingField, "Email and password required", "email")
	}
	return email, password, nil
}

// parseProfileForm extracts the profile fields from a submit request.
func parseProfileForm(r *http.Request) (map[string]string, *AuthError) {
	fields := map[string]string{}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError(ErrCodeMissingField, "Error parsing form", "")
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, NewAuthError(ErrCodeMissingField, "Invalid post body", "")
		}
		for key, value := range data {
			if s, ok := value.(string); ok {
				fields[key] = s
			}
		}
	}

	if len(fields) == 0 {
		return nil, NewAuthError(ErrCodeMissingField, "Nothing to submit", "")
	}
	return fields, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeAuthError(w http.ResponseWriter, status int, authErr *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authErr)
}
