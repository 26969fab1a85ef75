package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// MemoryStore keeps secrets in process memory. It backs KEY_MANAGER=memory and tests;
// secrets do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*keysDomain.Secret
	current map[keysDomain.Purpose]uuid.UUID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[uuid.UUID]*keysDomain.Secret),
		current: make(map[keysDomain.Purpose]uuid.UUID),
	}
}

// GetOrNull returns a copy of the current secret for the purpose.
func (m *MemoryStore) GetOrNull(_ context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.current[key]
	if !ok {
		return nil, nil
	}
	return cloneSecret(m.byID[id]), nil
}

// GetByID returns a copy of the secret with the given id.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneSecret(s), nil
}

// Put stores a new secret and makes it current.
func (m *MemoryStore) Put(
	_ context.Context,
	key keysDomain.Purpose,
	value, note string,
) (*keysDomain.Secret, error) {
	s := newSecret(key, value, note)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID[s.ID] = s
	m.current[key] = s.ID
	return cloneSecret(s), nil
}

// ListActive returns the non-retired secrets of the purpose, newest first.
func (m *MemoryStore) ListActive(_ context.Context, key keysDomain.Purpose) ([]*keysDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secrets := make([]*keysDomain.Secret, 0)
	for _, s := range m.byID {
		if s.Key == key && !s.IsRetired() {
			secrets = append(secrets, cloneSecret(s))
		}
	}
	sortNewestFirst(secrets)
	return secrets, nil
}

// Retire marks a non-current secret as retired.
func (m *MemoryStore) Retire(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok || s.IsRetired() || m.current[s.Key] == id {
		return nil
	}
	now := time.Now().UTC()
	s.RetiredAt = &now
	return nil
}

func cloneSecret(s *keysDomain.Secret) *keysDomain.Secret {
	c := *s
	if s.RetiredAt != nil {
		t := *s.RetiredAt
		c.RetiredAt = &t
	}
	return &c
}

// sortNewestFirst orders by creation time, falling back to the time-ordered UUIDv7 ids.
func sortNewestFirst(secrets []*keysDomain.Secret) {
	sort.SliceStable(secrets, func(i, j int) bool {
		if !secrets[i].CreatedAt.Equal(secrets[j].CreatedAt) {
			return secrets[i].CreatedAt.After(secrets[j].CreatedAt)
		}
		return secrets[i].ID.String() > secrets[j].ID.String()
	})
}
