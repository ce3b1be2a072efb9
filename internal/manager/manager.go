package manager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mnistd/internal/blobstore"
	"mnistd/internal/loader"
)

// Manager is the keyed actor host: one actor per identity, created on first
// use and kept until Unload, eviction or Close.
type Manager struct {
	mu     sync.RWMutex
	actors map[string]*actor
	closed bool

	store  blobstore.Store
	key    string
	decode loader.Decoder

	maxQueueDepth int
	maxWait       time.Duration
	maxActors     int
	drainTimeout  time.Duration

	publisher EventPublisher
	log       zerolog.Logger

	// base is canceled by Close; weight loads run under it so a caller
	// giving up does not abort a load other queued requests wait on.
	base   context.Context
	cancel context.CancelFunc

	started      time.Time
	loads        atomic.Uint64
	loadFailures atomic.Uint64
	evictions    atomic.Uint64

	errMu   sync.Mutex
	lastErr string
}

// New builds a Manager. No actor exists until the first request.
func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("manager: blob store is required")
	}
	cfg = cfg.withDefaults()
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		actors:        make(map[string]*actor),
		store:         cfg.Store,
		key:           cfg.WeightsKey,
		decode:        cfg.Decode,
		maxQueueDepth: cfg.MaxQueueDepth,
		maxWait:       cfg.MaxWait,
		maxActors:     cfg.MaxActors,
		drainTimeout:  cfg.DrainTimeout,
		publisher:     cfg.Publisher,
		log:           log,
		base:          base,
		cancel:        cancel,
		started:       time.Now(),
	}, nil
}

// Ready reports whether the manager accepts work. Actors load lazily, so a
// manager with no loaded actor is still ready.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

// WeightsKey returns the blob key actors load from.
func (m *Manager) WeightsKey() string { return m.key }

// Identities lists live actors, sorted.
func (m *Manager) Identities() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.actors))
	for id := range m.actors {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// actorFor returns the actor for identity, creating and starting it on
// first use.
func (m *Manager) actorFor(identity string) (*actor, error) {
	m.mu.RLock()
	a, closed := m.actors[identity], m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if a != nil {
		return a, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if a = m.actors[identity]; a != nil {
		m.mu.Unlock()
		return a, nil
	}
	var victim *actor
	if m.maxActors > 0 && len(m.actors) >= m.maxActors {
		if victim = m.pickLRULocked(); victim != nil {
			delete(m.actors, victim.identity)
		}
	}
	a = newActor(m, identity)
	m.actors[identity] = a
	m.mu.Unlock()

	actorsGauge.Inc()
	go a.run()
	if victim != nil {
		m.evict(victim)
	}
	m.publisher.Publish(Event{Name: EventActorCreated, Identity: identity, Fields: map[string]any{"instance_id": a.instanceID}})
	a.log.Debug().Msg("actor created")
	return a, nil
}

func (m *Manager) recordLoad(err error) {
	if err == nil {
		m.loads.Add(1)
		return
	}
	m.loadFailures.Add(1)
	m.errMu.Lock()
	m.lastErr = err.Error()
	m.errMu.Unlock()
}

// Close stops every actor and waits for them to exit. Queued requests are
// answered with ErrClosed. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	actors := make([]*actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.actors = make(map[string]*actor)
	m.mu.Unlock()

	m.cancel()
	for _, a := range actors {
		a.stop()
	}
	for _, a := range actors {
		<-a.done
		actorsGauge.Dec()
	}
	m.log.Info().Int("actors", len(actors)).Msg("manager closed")
}
