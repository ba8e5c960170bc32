package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Store implements ports.SessionStore using an in-memory map.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// NewStore creates a new empty in-memory session store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Save persists a copy of the session.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copySession(session)
	return nil
}

// Load returns a copy so callers can't mutate stored snapshots by pointer.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(session), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func copySession(s *domain.Session) *domain.Session {
	out := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return &out
}
