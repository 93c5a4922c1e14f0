package authgate

import (
	"context"
	"sync"
)

// Strategy turns presented credentials into a resolved user or a typed
// rejection. Implementations must be safe for concurrent use; many
// authentication attempts are in flight at once.
type Strategy interface {
	Name() string

	// Authenticate resolves creds to a user. Rejections are reported
	// through the core error taxonomy (ErrInvalidCredentials,
	// ErrProviderExchange, ...), never through a nil-user success.
	Authenticate(ctx context.Context, creds Credentials) (*User, error)
}

// StrategyLocal is the registry name of the email/password strategy.
const StrategyLocal = "local"

// Registry holds the configured strategies keyed by name. The
// coordinator selects a strategy statically per operation; there is no
// fallback chain.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy under its name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered strategy names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	return out
}
