// Package ristretto provides a SessionStore on a TTL-evicting in-memory
// cache. Suited to busy single-process deployments where session lookups
// sit on every request's critical path.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

type entry struct {
	b        []byte
	deadline time.Time
}

type Store struct {
	cache *ristretto.Cache[string, entry]
}

func New() (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, entry]{
		NumCounters: 1e6,     // expected keys x10
		MaxCost:     1 << 26, // 64MB of serialized sessions
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache}, nil
}

func (s *Store) Find(token string) ([]byte, bool, error) {
	e, found := s.cache.Get(token)
	if !found {
		return nil, false, nil
	}
	if time.Now().After(e.deadline) {
		s.cache.Del(token)
		return nil, false, nil
	}
	return e.b, true, nil
}

func (s *Store) Commit(token string, b []byte, expiry time.Time) error {
	s.cache.SetWithTTL(token, entry{b: b, deadline: expiry}, int64(len(b)), time.Until(expiry))
	// Ristretto admits writes asynchronously; flush so the session is
	// visible to the request that established it.
	s.cache.Wait()
	return nil
}

func (s *Store) Delete(token string) error {
	s.cache.Del(token)
	s.cache.Wait()
	return nil
}
