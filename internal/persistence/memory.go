package persistence

import (
	"context"
	"sync"
)

// MemoryBackend keeps the document in process memory. Used in tests and by
// the "memory" storage driver for throwaway sessions.
type MemoryBackend struct {
	mutex sync.Mutex
	doc   []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Name() string {
	return "memory"
}

func (b *MemoryBackend) Read(_ context.Context) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.doc == nil {
		return nil, ErrNotFound
	}
	doc := make([]byte, len(b.doc))
	copy(doc, b.doc)
	return doc, nil
}

func (b *MemoryBackend) Write(_ context.Context, doc []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.doc = make([]byte, len(doc))
	copy(b.doc, doc)
	return nil
}
