package session

import (
	"context"
	"sync"
)

// MemoryPersister keeps the credential for the life of the process only.
type MemoryPersister struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{vals: make(map[string]string)}
}

func (m *MemoryPersister) Load(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Credential{Access: m.vals[KeyAccess], Refresh: m.vals[KeyRefresh]}, nil
}

func (m *MemoryPersister) Save(ctx context.Context, c Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[KeyAccess] = c.Access
	m.vals[KeyRefresh] = c.Refresh
	return nil
}

func (m *MemoryPersister) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, KeyAccess)
	delete(m.vals, KeyRefresh)
	return nil
}
