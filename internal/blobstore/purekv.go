package blobstore

import (
	"context"
	"fmt"
	"sync"

	pkv "github.com/gasparian/pure-kv-go/client"
)

const defaultPureKVBucket = "blobs"

// PureKVStore reads blobs from a pure-kv server bucket over RPC.
type PureKVStore struct {
	mx     sync.Mutex
	client *pkv.Client
	bucket string
}

// OpenPureKV connects to the pure-kv server at address and makes sure the
// bucket exists.
func OpenPureKV(address string, timeoutSeconds int, bucket string) (*PureKVStore, error) {
	if address == "" {
		return nil, fmt.Errorf("blobstore: purekv driver requires an address")
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	if bucket == "" {
		bucket = defaultPureKVBucket
	}
	client := pkv.New(address, timeoutSeconds)
	if err := client.Open(); err != nil {
		return nil, fmt.Errorf("purekv open %s: %w", address, err)
	}
	if err := client.Create(bucket); err != nil {
		client.Close()
		return nil, fmt.Errorf("purekv create bucket %s: %w", bucket, err)
	}
	return &PureKVStore{client: client, bucket: bucket}, nil
}

func (s *PureKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mx.Lock()
	val, ok := s.client.Get(s.bucket, key)
	s.mx.Unlock()
	if !ok || val == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("purekv %s: unexpected value type %T", key, val)
	}
	return b, nil
}

func (s *PureKVStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.client.Set(s.bucket, key, data)
}

func (s *PureKVStore) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.client.Close()
	return nil
}
