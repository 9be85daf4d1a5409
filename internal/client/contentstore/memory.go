package contentstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/common"
)

// MemoryStore keeps blobs in a map. It backs tests and the offline demo.
type MemoryStore struct {
	addressed
	mem *memBlobs
}

type memBlobs struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	mb := &memBlobs{blobs: make(map[string][]byte)}
	return &MemoryStore{addressed: addressed{blobs: mb}, mem: mb}
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()
	return len(s.mem.blobs)
}

func (m *memBlobs) put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobs) get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, common.ErrContentNotFound)
	}
	return append([]byte(nil), b...), nil
}
