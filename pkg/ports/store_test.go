package ports_test

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// MockStore is a map-backed SessionStore used to check the contract suite itself.
type MockStore struct {
	data map[string]domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]domain.Session),
	}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	m.data[sessionID] = *session
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewMockStore())
}
