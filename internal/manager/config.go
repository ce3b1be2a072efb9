package manager

import (
	"time"

	"github.com/rs/zerolog"

	"mnistd/internal/blobstore"
	"mnistd/internal/loader"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 10 * time.Second
	defaultWeightsKey    = "mnist.bin"
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Store holds the weight blob under WeightsKey.
	Store      blobstore.Store
	WeightsKey string
	// Decode overrides model.Decode (tests, alternate formats).
	Decode loader.Decoder

	// MaxQueueDepth bounds each actor's mailbox.
	MaxQueueDepth int
	// MaxWait bounds how long a request waits for mailbox space.
	MaxWait time.Duration
	// MaxActors caps live actors; 0 means unlimited. When exceeded the least
	// recently used idle actor is dropped.
	MaxActors int
	// DrainTimeout bounds how long Unload waits for queued work.
	DrainTimeout time.Duration

	Publisher EventPublisher
	Logger    *zerolog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.WeightsKey == "" {
		cfg.WeightsKey = defaultWeightsKey
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.MaxActors < 0 {
		cfg.MaxActors = 0
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	return cfg
}
