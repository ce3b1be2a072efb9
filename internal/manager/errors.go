package manager

import (
	"errors"

	"mnistd/internal/loader"
)

// tooBusyError signals mailbox overflow past MaxWait for 429 mapping.
type tooBusyError struct{ identity string }

func (e tooBusyError) Error() string { return "too busy: " + e.identity }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type actorNotFoundError struct{ identity string }

func (e actorNotFoundError) Error() string { return "actor not found: " + e.identity }

// ErrActorNotFound returns an error for an identity with no live actor.
func ErrActorNotFound(identity string) error { return actorNotFoundError{identity: identity} }

// IsActorNotFound reports whether the error indicates a missing actor.
func IsActorNotFound(err error) bool {
	var e actorNotFoundError
	return errors.As(err, &e)
}

// modelUnavailableError is returned when the actor could not load its
// weights. The actor stays unloaded and the next request tries again.
type modelUnavailableError struct {
	identity string
	err      error
}

func (e *modelUnavailableError) Error() string {
	return "model unavailable for " + e.identity + ": " + e.err.Error()
}

func (e *modelUnavailableError) Unwrap() error { return e.err }

// IsModelUnavailable reports whether err is a failed weight load (503).
// loader.IsNotFound and loader.IsDecode narrow the cause.
func IsModelUnavailable(err error) bool {
	var e *modelUnavailableError
	if errors.As(err, &e) {
		return true
	}
	var le *loader.Error
	return errors.As(err, &le)
}

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("manager closed")

// errActorStopped is internal: the actor picked for a request started
// draining; the request is retried on a fresh actor.
var errActorStopped = errors.New("actor stopped")
