// Package loader fetches a weight blob from a blob store and decodes it
// into a ready-to-evaluate model. It performs exactly one storage read per
// call and never retries; retry policy belongs to the caller.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"mnistd/internal/blobstore"
	"mnistd/internal/model"
)

// Kind classifies a load failure.
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindDecode   Kind = "decode"
	KindStorage  Kind = "storage"
)

// Error describes why weights could not be loaded.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("model weights %q not found (were they uploaded?)", e.Key)
	case KindDecode:
		return fmt.Sprintf("decode model weights %q: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("fetch model weights %q: %v", e.Key, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a load failure caused by a missing blob.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsDecode reports whether err is a load failure caused by a malformed blob.
func IsDecode(err error) bool { return kindOf(err) == KindDecode }

func kindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

var loadDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "mnistd",
		Subsystem: "loader",
		Name:      "load_duration_seconds",
		Help:      "Duration of weight fetch and decode",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(loadDuration)
}

// Decoder turns a blob into a model. model.Decode is the default.
type Decoder func([]byte) (*model.Loaded, error)

// Load fetches key from store and decodes it with dec (model.Decode when nil).
func Load(ctx context.Context, store blobstore.Store, key string, dec Decoder, log zerolog.Logger) (*model.Loaded, error) {
	if dec == nil {
		dec = model.Decode
	}
	start := time.Now()
	b, err := store.Get(ctx, key)
	if err != nil {
		kind := KindStorage
		if blobstore.IsNotFound(err) {
			kind = KindNotFound
		}
		loadDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		log.Error().Str("key", key).Str("kind", string(kind)).Err(err).Msg("weights fetch failed")
		return nil, &Error{Kind: kind, Key: key, Err: err}
	}
	fetched := time.Since(start)

	m, err := dec(b)
	if err != nil {
		loadDuration.WithLabelValues(string(KindDecode)).Observe(time.Since(start).Seconds())
		log.Error().Str("key", key).Int("bytes", len(b)).Err(err).Msg("weights decode failed")
		return nil, &Error{Kind: KindDecode, Key: key, Err: err}
	}
	if m == nil || m.Model == nil {
		loadDuration.WithLabelValues(string(KindDecode)).Observe(time.Since(start).Seconds())
		return nil, &Error{Kind: KindDecode, Key: key, Err: model.ErrDecode}
	}
	loadDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	log.Info().
		Str("key", key).
		Int("bytes", len(b)).
		Str("precision", string(m.Precision)).
		Str("digest", m.Digest).
		Dur("fetch", fetched).
		Dur("total", time.Since(start)).
		Msg("weights loaded")
	return m, nil
}
