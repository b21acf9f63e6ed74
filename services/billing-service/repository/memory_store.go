package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process. It backs local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, patch Document, opts SetOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]Document)
		m.docs[collection] = coll
	}

	existing, ok := coll[id]
	if !ok || !opts.Merge {
		coll[id] = patch.Clone()
		return nil
	}
	for k, v := range patch {
		existing[k] = v
	}
	return nil
}

// Len reports how many documents collection holds.
func (m *MemoryStore) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}
