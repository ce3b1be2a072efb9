// Package blobstore provides the object storage the model weights are
// fetched from. A Store maps a well-known object key (e.g. "mnist.bin") to
// an opaque byte blob.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (possibly wrapped) when no object exists at a key.
var ErrNotFound = errors.New("blobstore: object not found")

// Store reads objects by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Writer stores objects by key. Used by tooling that uploads weights.
type Writer interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ReadWriter is a Store that also accepts uploads.
type ReadWriter interface {
	Store
	Writer
	Close() error
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Drivers accepted by Open.
const (
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
	DriverPureKV = "purekv"
	DriverMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the directory (fs) or database file (sqlite).
	Path string
	// Address and TimeoutSeconds configure the pure-kv client.
	Address        string
	TimeoutSeconds int
	// Bucket is the pure-kv bucket holding blobs.
	Bucket string
}

// Open constructs the configured backend.
func Open(cfg Config) (ReadWriter, error) {
	var (
		s   ReadWriter
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverFS, "":
		var fs *FSStore
		if fs, err = NewFSStore(cfg.Path); err == nil {
			s = fs
		}
	case DriverSQLite:
		var sq *SQLiteStore
		if sq, err = OpenSQLite(cfg.Path); err == nil {
			s = sq
		}
	case DriverPureKV:
		var kv *PureKVStore
		if kv, err = OpenPureKV(cfg.Address, cfg.TimeoutSeconds, cfg.Bucket); err == nil {
			s = kv
		}
	case DriverMemory:
		s = NewMemoryStore()
	default:
		err = fmt.Errorf("blobstore: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("blobstore: empty key")
	}
	return nil
}
