package store

import "sync"

// MemoryProvider holds collections in memory. Records are returned in the
// order they were added.
type MemoryProvider struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{collections: make(map[string][]Record)}
}

// Add appends a record built from data to collection. Values are
// normalized first.
func (p *MemoryProvider) Add(collection, id string, data map[string]any) *MemoryProvider {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.collections[collection] = append(p.collections[collection], Record{
		ID:         id,
		Collection: collection,
		FileName:   id,
		Data:       normalizeMap(data),
	})
	return p
}

// Records implements Provider.
func (p *MemoryProvider) Records(collection string) ([]Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records := p.collections[collection]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}
