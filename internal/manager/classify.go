package manager

import (
	"context"
	"errors"
	"time"

	"mnistd/internal/classifier"
)

// maxSubmitAttempts bounds retries when the chosen actor is being recycled.
const maxSubmitAttempts = 3

// Classify routes raw to the actor for identity and returns the class
// probabilities. Malformed input is rejected before any actor or load is
// involved.
func (m *Manager) Classify(ctx context.Context, identity string, raw []float32) (classifier.Probabilities, error) {
	if err := classifier.ValidateInput(raw); err != nil {
		requestsTotal.WithLabelValues(kindClassify.String(), "malformed").Inc()
		return nil, err
	}
	res, err := m.submit(ctx, identity, kindClassify, append([]float32(nil), raw...), true)
	if err != nil {
		return nil, err
	}
	return res.probs, nil
}

// Decide is Classify plus the most likely class.
func (m *Manager) Decide(ctx context.Context, identity string, raw []float32) (classifier.Decision, error) {
	if err := classifier.ValidateInput(raw); err != nil {
		requestsTotal.WithLabelValues(kindDecide.String(), "malformed").Inc()
		return classifier.Decision{}, err
	}
	res, err := m.submit(ctx, identity, kindDecide, append([]float32(nil), raw...), true)
	if err != nil {
		return classifier.Decision{}, err
	}
	return classifier.Decision{Class: res.class, Probabilities: res.probs}, nil
}

// Warm queues a load for identity and returns once the request is
// admitted. The load itself runs asynchronously on the actor.
func (m *Manager) Warm(ctx context.Context, identity string) error {
	_, err := m.submit(ctx, identity, kindWarm, nil, false)
	return err
}

func (m *Manager) submit(ctx context.Context, identity string, kind requestKind, raw []float32, wait bool) (result, error) {
	if identity == "" {
		return result{}, ErrActorNotFound("(unspecified)")
	}
	for attempt := 1; ; attempt++ {
		a, err := m.actorFor(identity)
		if err != nil {
			return result{}, err
		}
		req := request{ctx: ctx, kind: kind, raw: raw, queued: time.Now(), reply: make(chan result, 1)}
		err = a.enqueue(ctx, req, m.maxWait)
		if err == nil {
			if !wait {
				return result{}, nil
			}
			var res result
			res, err = a.await(ctx, req.reply)
			if !errors.Is(err, errActorStopped) {
				return res, err
			}
		} else if !errors.Is(err, errActorStopped) {
			if IsTooBusy(err) {
				a.log.Warn().Str("kind", kind.String()).Dur("max_wait", m.maxWait).Msg("mailbox full")
			}
			return result{}, err
		}
		if attempt >= maxSubmitAttempts {
			return result{}, tooBusyError{identity: identity}
		}
	}
}
