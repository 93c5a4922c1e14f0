package authgate_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	ag "github.com/panyam/authgate"
	"github.com/panyam/authgate/stores/memory"
	"golang.org/x/crypto/bcrypt"
)

func newTestCoordinator(t *testing.T) (*ag.Coordinator, *memory.Store) {
	t.Helper()
	users := memory.New()
	coord := ag.NewCoordinator(users, ag.NewHasher(bcrypt.MinCost), newTestSessionManager(0), nil)
	return coord, users
}

func TestRegisterAndLogin(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	token, err := coord.Register(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Registration auto-logs-in: the session is live immediately.
	user, err := coord.Session(ctx, token)
	if err != nil {
		t.Fatalf("Session after Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("session user = %q, want alice@example.com", user.Email)
	}

	loginToken, err := coord.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	user, err = coord.Session(ctx, loginToken)
	if err != nil {
		t.Fatalf("Session after Login failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("login session user = %q, want alice@example.com", user.Email)
	}
}

func TestLoginRejections(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := coord.Register(ctx, "alice@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "wrongpass"},
		{"unknown email", "nobody@example.com", "secret123"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coord.Login(ctx, tt.email, tt.password)
			// Unknown user and wrong password must be indistinguishable.
			if !errors.Is(err, ag.ErrInvalidCredentials) {
				t.Errorf("Login = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := coord.Register(ctx, "alice@example.com", "secret123"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, err := coord.Register(ctx, "alice@example.com", "otherpass99"); !errors.Is(err, ag.ErrAccountExists) {
		t.Errorf("second Register = %v, want ErrAccountExists", err)
	}
}

func TestConcurrentRegistrations(t *testing.T) {
	coord, users := newTestCoordinator(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = coord.Register(ctx, "race@example.com", "secret123")
		}()
	}
	wg.Wait()

	succeeded := 0
	for i, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ag.ErrAccountExists):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Errorf("exactly one concurrent registration must win, got %d", succeeded)
	}

	if _, err := users.GetUserByEmail(ctx, "race@example.com"); err != nil {
		t.Errorf("winner's row missing: %v", err)
	}
}
