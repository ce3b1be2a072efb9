package manager

import (
	"context"
	"time"

	"mnistd/internal/classifier"
)

// State represents the lifecycle state of an actor.
type State string

const (
	// StateUnloaded is the initial state and the state after a failed load.
	StateUnloaded State = "unloaded"
	// StateLoading is held while the weights are fetched and decoded.
	StateLoading State = "loading"
	// StateReady means the weights are cached for the actor's lifetime.
	StateReady State = "ready"
	// StateDraining is set once Unload or eviction starts.
	StateDraining State = "draining"
)

type requestKind int

const (
	kindClassify requestKind = iota
	kindDecide
	kindWarm
)

func (k requestKind) String() string {
	switch k {
	case kindClassify:
		return "classify"
	case kindDecide:
		return "decide"
	default:
		return "warm"
	}
}

// request is one mailbox message. reply is buffered so the actor never
// blocks on a caller that gave up.
type request struct {
	ctx    context.Context
	kind   requestKind
	raw    []float32
	queued time.Time
	reply  chan result
}

type result struct {
	probs classifier.Probabilities
	class int
	err   error
}

// Snapshot is a read-only projection of one actor.
type Snapshot struct {
	Identity   string
	InstanceID string
	State      State
	Err        string
}
