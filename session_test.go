package authgate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	ag "github.com/panyam/authgate"
)

func newTestSessionManager(ttl time.Duration) *ag.SessionManager {
	sm := ag.NewSessionManager(memstore.New(), "test-session-secret")
	if ttl != 0 {
		sm.TTL = ttl
	}
	return sm
}

func testUser() *ag.User {
	return &ag.User{
		ID:      "user-1",
		Email:   "alice@example.com",
		Profile: map[string]string{"name": "Alice"},
	}
}

func TestEstablishAndValidate(t *testing.T) {
	sm := newTestSessionManager(0)

	token, err := sm.Establish(testUser())
	if err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	user, err := sm.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("principal email = %q, want alice@example.com", user.Email)
	}
	if user.Profile["name"] != "Alice" {
		t.Errorf("principal profile lost in serialization: %v", user.Profile)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	sm := newTestSessionManager(0)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := sm.Validate(token); !errors.Is(err, ag.ErrSessionNotFound) {
			t.Errorf("Validate(%q) = %v, want ErrSessionNotFound", token, err)
		}
	}
}

func TestValidateTamperedToken(t *testing.T) {
	sm := newTestSessionManager(0)
	token, err := sm.Establish(testUser())
	if err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	// A token signed with a different secret must not validate.
	other := ag.NewSessionManager(sm.Store, "different-secret")
	if _, err := other.Validate(token); !errors.Is(err, ag.ErrSessionNotFound) {
		t.Errorf("tampered token validated: %v", err)
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	sm := newTestSessionManager(0)
	token, err := sm.Establish(testUser())
	if err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	if err := sm.Terminate(token); err != nil {
		t.Fatalf("first Terminate failed: %v", err)
	}
	if err := sm.Terminate(token); err != nil {
		t.Errorf("second Terminate should be a no-op, got %v", err)
	}
	if err := sm.Terminate("unknown-token"); err != nil {
		t.Errorf("terminating an unknown token should be a no-op, got %v", err)
	}

	if _, err := sm.Validate(token); !errors.Is(err, ag.ErrSessionNotFound) {
		t.Errorf("Validate after Terminate = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	sm := newTestSessionManager(50 * time.Millisecond)

	token, err := sm.Establish(testUser())
	if err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	if _, err := sm.Validate(token); err != nil {
		t.Fatalf("session should be valid before expiry: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := sm.Validate(token); !errors.Is(err, ag.ErrSessionExpired) {
		t.Errorf("Validate after expiry = %v, want ErrSessionExpired", err)
	}

	// Expired sessions still terminate cleanly.
	if err := sm.Terminate(token); err != nil {
		t.Errorf("Terminate of expired session failed: %v", err)
	}
}
