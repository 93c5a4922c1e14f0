package authgate

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when a Hasher is created
// with an out-of-range cost.
const DefaultBcryptCost = bcrypt.DefaultCost

// Hasher computes and verifies salted bcrypt digests. The zero value is
// usable and hashes at DefaultBcryptCost.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) cost() int {
	if h == nil || h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost {
		return DefaultBcryptCost
	}
	return h.Cost
}

// Hash returns a salted one-way digest of password. The salt is random,
// so hashing the same password twice yields different digests.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify recomputes the digest using the salt embedded in digest and
// compares in constant time (delegated to bcrypt). It returns nil on a
// match, ErrInvalidCredentials on a mismatch, and ErrMalformedHash when
// digest is not a parseable bcrypt hash. The OAuth sentinel digest falls
// into the malformed case, so sentinel users never verify.
func (h *Hasher) Verify(password, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
