package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mnistd/internal/blobstore"
	"mnistd/internal/model"
	"mnistd/internal/tensor"
)

const testKey = "mnist.bin"

// weightsBlob encodes a small random network.
func weightsBlob(t *testing.T) []byte {
	t.Helper()
	n, err := model.NewRandom(model.PrecisionFloat32, 3, 16)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	b, err := model.Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func memStoreWithWeights(t *testing.T) *blobstore.MemoryStore {
	t.Helper()
	s := blobstore.NewMemoryStore()
	if err := s.Put(context.Background(), testKey, weightsBlob(t)); err != nil {
		t.Fatalf("put: %v", err)
	}
	return s
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.WeightsKey == "" {
		cfg.WeightsKey = testKey
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func pixels(v float32) []float32 {
	raw := make([]float32, tensor.Pixels)
	for i := range raw {
		raw[i] = v
	}
	return raw
}

// countingStore counts Get calls.
type countingStore struct {
	inner blobstore.Store
	gets  atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	return s.inner.Get(ctx, key)
}

// blockingStore holds every Get until release is closed.
type blockingStore struct {
	inner   blobstore.Store
	entered chan struct{}
	release chan struct{}
	gets    atomic.Int32
}

func newBlockingStore(inner blobstore.Store) *blockingStore {
	return &blockingStore{inner: inner, entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (s *blockingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	select {
	case s.entered <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.inner.Get(ctx, key)
}

// barrierStore only answers once n Gets are in progress at the same time.
type barrierStore struct {
	inner   blobstore.Store
	n       int
	mu      sync.Mutex
	arrived int
	all     chan struct{}
}

func newBarrierStore(inner blobstore.Store, n int) *barrierStore {
	return &barrierStore{inner: inner, n: n, all: make(chan struct{})}
}

func (s *barrierStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.arrived++
	if s.arrived == s.n {
		close(s.all)
	}
	s.mu.Unlock()
	select {
	case <-s.all:
		return s.inner.Get(ctx, key)
	case <-time.After(2 * time.Second):
		return nil, errors.New("loads did not overlap")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func actorStatus(m *Manager, identity string) (queue, inflight int, ok bool) {
	for _, a := range m.Status().Actors {
		if a.Identity == identity {
			return a.QueueLen, a.Inflight, true
		}
	}
	return 0, 0, false
}
