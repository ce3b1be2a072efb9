package manager

import (
	"context"
	"time"
)

// enqueue places req in the mailbox, waiting at most maxWait for space.
// A full mailbox past the deadline is reported as tooBusyError.
func (a *actor) enqueue(ctx context.Context, req request, maxWait time.Duration) error {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-a.stopping:
		return errActorStopped
	default:
	}
	select {
	case a.mailbox <- req:
		return nil
	default:
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	select {
	case a.mailbox <- req:
		return nil
	case <-a.stopping:
		return errActorStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return tooBusyError{identity: a.identity}
	}
}

// await waits for the reply to a queued request. A request that slipped
// into the mailbox after the actor's final drain surfaces as
// errActorStopped so the caller can retry on a fresh actor.
func (a *actor) await(ctx context.Context, reply <-chan result) (result, error) {
	select {
	case res := <-reply:
		return res, res.err
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-a.done:
		select {
		case res := <-reply:
			return res, res.err
		default:
			return result{}, errActorStopped
		}
	}
}
