package manager

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mnistd/internal/classifier"
	"mnistd/internal/loader"
	"mnistd/internal/model"
)

// actor serves one identity. Its run goroutine is the only code that reads
// or writes loaded, so the Unloaded -> Loaded transition needs no lock.
type actor struct {
	m          *Manager
	identity   string
	instanceID string
	log        zerolog.Logger

	mailbox  chan request
	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	inflight atomic.Int32

	loaded *model.Loaded

	// mu guards the fields below, which exist for status reporting.
	mu           sync.Mutex
	state        State
	createdAt    time.Time
	lastUsed     time.Time
	loadedAt     time.Time
	precision    string
	digest       string
	served       uint64
	loadFailures uint64
	lastErr      string
}

func newActor(m *Manager, identity string) *actor {
	id := uuid.NewString()
	now := time.Now()
	return &actor{
		m:          m,
		identity:   identity,
		instanceID: id,
		log:        m.log.With().Str("identity", identity).Str("instance_id", id).Logger(),
		mailbox:    make(chan request, m.maxQueueDepth),
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
		state:      StateUnloaded,
		createdAt:  now,
		lastUsed:   now,
	}
}

// run drains the mailbox one request at a time. After stop it finishes
// whatever is already queued and exits.
func (a *actor) run() {
	defer close(a.done)
	defer a.release()
	for {
		select {
		case req := <-a.mailbox:
			a.handle(req)
		case <-a.stopping:
			for {
				select {
				case req := <-a.mailbox:
					a.handle(req)
				default:
					return
				}
			}
		}
	}
}

func (a *actor) handle(req request) {
	mailboxWait.Observe(time.Since(req.queued).Seconds())
	a.inflight.Store(1)
	res := a.safeProcess(req)
	a.inflight.Store(0)
	req.reply <- res
	requestsTotal.WithLabelValues(req.kind.String(), outcome(res.err)).Inc()
}

// safeProcess keeps a panicking collaborator from taking the actor, and the
// process, down with it. The caller always gets a reply.
func (a *actor) safeProcess(req request) (res result) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Str("kind", req.kind.String()).Msg("request panicked")
			res = result{err: fmt.Errorf("%s: internal error: %v", req.kind, r)}
		}
	}()
	return a.process(req)
}

func (a *actor) process(req request) result {
	if a.m.base.Err() != nil {
		return result{err: ErrClosed}
	}
	if req.kind != kindWarm {
		if err := req.ctx.Err(); err != nil {
			return result{err: err}
		}
	}
	if a.loaded == nil {
		if err := a.load(); err != nil {
			return result{err: err}
		}
	}
	a.touch()
	if req.kind == kindWarm {
		return result{}
	}
	d, err := classifier.Decide(a.loaded, req.raw)
	if err != nil {
		return result{err: err}
	}
	a.mu.Lock()
	a.served++
	a.mu.Unlock()
	return result{probs: d.Probabilities, class: d.Class}
}

// load fetches the weights once. On failure the actor stays unloaded and
// the next request tries again.
func (a *actor) load() error {
	a.setState(StateLoading)
	a.m.publisher.Publish(Event{Name: EventLoadStart, Identity: a.identity, Fields: map[string]any{"instance_id": a.instanceID}})

	loaded, err := a.fetch()
	a.m.recordLoad(err)
	if err != nil {
		a.mu.Lock()
		if a.state != StateDraining {
			a.state = StateUnloaded
		}
		a.loadFailures++
		a.lastErr = err.Error()
		a.mu.Unlock()
		loadsTotal.WithLabelValues("error").Inc()
		a.m.publisher.Publish(Event{Name: EventLoadFailed, Identity: a.identity, Fields: map[string]any{"error": err.Error()}})
		return &modelUnavailableError{identity: a.identity, err: err}
	}

	a.loaded = loaded
	at := loaded.LoadedAt
	if at.IsZero() {
		at = time.Now()
	}
	a.mu.Lock()
	if a.state != StateDraining {
		a.state = StateReady
	}
	a.loadedAt = at
	a.precision = string(loaded.Precision)
	a.digest = loaded.Digest
	a.lastErr = ""
	a.mu.Unlock()
	loadsTotal.WithLabelValues("ok").Inc()
	a.m.publisher.Publish(Event{Name: EventLoadReady, Identity: a.identity, Fields: map[string]any{"digest": loaded.Digest, "precision": string(loaded.Precision)}})
	return nil
}

// fetch runs the loader, reporting a panicking decoder as a decode failure.
func (a *actor) fetch() (loaded *model.Loaded, err error) {
	defer func() {
		if r := recover(); r != nil {
			loaded = nil
			err = &loader.Error{Kind: loader.KindDecode, Key: a.m.key, Err: fmt.Errorf("%w: panic: %v", model.ErrDecode, r)}
		}
	}()
	return loader.Load(a.m.base, a.m.store, a.m.key, a.m.decode, a.log)
}

func (a *actor) release() {
	if a.loaded == nil {
		return
	}
	if err := a.loaded.Close(); err != nil {
		a.log.Warn().Err(err).Msg("release model")
	}
	a.loaded = nil
}

// stop marks the actor draining; run exits once the mailbox is empty.
func (a *actor) stop() {
	a.stopOnce.Do(func() {
		a.setState(StateDraining)
		close(a.stopping)
	})
}

// setState moves to s unless the actor is already draining.
func (a *actor) setState(s State) {
	a.mu.Lock()
	if a.state != StateDraining {
		a.state = s
	}
	a.mu.Unlock()
}

func (a *actor) touch() {
	a.mu.Lock()
	a.lastUsed = time.Now()
	a.mu.Unlock()
}

func (a *actor) lastUsedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastUsed
}

// idle reports whether nothing is queued or running.
func (a *actor) idle() bool {
	return len(a.mailbox) == 0 && a.inflight.Load() == 0
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsModelUnavailable(err):
		return "model_unavailable"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
