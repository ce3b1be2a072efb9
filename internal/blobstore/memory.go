package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps blobs in process memory. Used by tests and by the
// "memory" driver for throwaway deployments.
type MemoryStore struct {
	mx sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mx.RLock()
	defer s.mx.RUnlock()
	b, ok := s.m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.m[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key; missing keys are ignored.
func (s *MemoryStore) Delete(key string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	delete(s.m, key)
}

func (s *MemoryStore) Close() error { return nil }
