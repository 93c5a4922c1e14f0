package authgate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	ag "github.com/panyam/authgate"
)

func newTestServer(t *testing.T) (http.Handler, *ag.Coordinator) {
	t.Helper()
	coord, _ := newTestCoordinator(t)
	handlers := &ag.Handlers{Auth: coord}
	return handlers.Handler(), coord
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "authgate_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response; headers: %v", rr.Header())
	return nil
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestRegisterLoginFlow(t *testing.T) {
	handler, _ := newTestServer(t)

	// Register alice.
	rr := postForm(t, handler, "/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret123"},
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rr.Code, rr.Body.String())
	}
	sessionCookie(t, rr)

	// Wrong password is a 401 with the unified error code.
	rr = postForm(t, handler, "/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrongpass"},
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-password status = %d, want 401", rr.Code)
	}
	if body := decodeBody(t, rr); body["code"] != ag.ErrCodeInvalidCreds {
		t.Errorf("error code = %v, want %s", body["code"], ag.ErrCodeInvalidCreds)
	}

	// Unknown email looks exactly the same.
	rr = postForm(t, handler, "/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"secret123"},
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown-email status = %d, want 401", rr.Code)
	}
	if body := decodeBody(t, rr); body["code"] != ag.ErrCodeInvalidCreds {
		t.Errorf("error code = %v, want %s", body["code"], ag.ErrCodeInvalidCreds)
	}

	// Correct credentials log in and return the user.
	rr = postForm(t, handler, "/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret123"},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	user, _ := body["user"].(map[string]any)
	if user == nil || user["email"] != "alice@example.com" {
		t.Errorf("login response user = %v, want alice@example.com", body["user"])
	}
}

func TestRegisterValidation(t *testing.T) {
	handler, _ := newTestServer(t)

	tests := []struct {
		name     string
		form     url.Values
		wantCode string
	}{
		{"missing password", url.Values{"email": {"a@example.com"}}, ag.ErrCodeMissingField},
		{"bad email", url.Values{"email": {"not-an-email"}, "password": {"secret123"}}, ag.ErrCodeInvalidEmail},
		{"weak password", url.Values{"email": {"a@example.com"}, "password": {"short"}}, ag.ErrCodeWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(t, handler, "/register", tt.form, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if body := decodeBody(t, rr); body["code"] != tt.wantCode {
				t.Errorf("error code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestRegisterConflict(t *testing.T) {
	handler, _ := newTestServer(t)

	form := url.Values{"email": {"alice@example.com"}, "password": {"secret123"}}
	if rr := postForm(t, handler, "/register", form, nil); rr.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rr.Code)
	}
	rr := postForm(t, handler, "/register", form, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rr.Code)
	}
	if body := decodeBody(t, rr); body["code"] != ag.ErrCodeEmailExists {
		t.Errorf("error code = %v, want %s", body["code"], ag.ErrCodeEmailExists)
	}
}

func TestProfileAndSubmit(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := postForm(t, handler, "/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret123"},
	}, nil)
	cookie := sessionCookie(t, rr)

	// No cookie: 401.
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusUnauthorized {
		t.Fatalf("profile without session = %d, want 401", rr2.Code)
	}

	// Submit a secret.
	rr3 := postForm(t, handler, "/submit", url.Values{"secret": {"i like go"}}, []*http.Cookie{cookie})
	if rr3.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rr3.Code, rr3.Body.String())
	}

	// Profile re-reads the store, so the fresh field is visible even
	// though the session principal is a login-time snapshot.
	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rr4 := httptest.NewRecorder()
	handler.ServeHTTP(rr4, req)
	if rr4.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rr4.Code)
	}
	body := decodeBody(t, rr4)
	user, _ := body["user"].(map[string]any)
	profile, _ := user["profile"].(map[string]any)
	if profile["secret"] != "i like go" {
		t.Errorf("profile = %v, want submitted secret", profile)
	}
}

func TestLogout(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := postForm(t, handler, "/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret123"},
	}, nil)
	cookie := sessionCookie(t, rr)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rr2.Code)
	}

	// The session is gone server-side even if the client keeps the cookie.
	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, req)
	if rr3.Code != http.StatusUnauthorized {
		t.Errorf("profile after logout = %d, want 401", rr3.Code)
	}

	// Logging out twice is fine.
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rr4 := httptest.NewRecorder()
	handler.ServeHTTP(rr4, req)
	if rr4.Code != http.StatusOK {
		t.Errorf("second logout status = %d, want 200", rr4.Code)
	}
}

func TestLogoutRedirect(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logout?to=/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("logout redirect status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want /", loc)
	}
}
