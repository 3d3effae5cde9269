package directory

import (
	"context"
	"sync"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
)

// Static is an in-memory directory, used in tests and when no platform
// database is configured.
type Static struct {
	mu    sync.RWMutex
	users map[string]domain.Identity
}

func NewStatic(users ...domain.Identity) *Static {
	s := &Static{users: make(map[string]domain.Identity, len(users))}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *Static) Add(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id.UserID] = id
}

func (s *Static) Lookup(_ context.Context, userID string) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.users[userID]
	if !ok {
		return domain.Identity{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", userID))
	}
	return id, nil
}
