package manager

import (
	"time"
)

// Unload drains an actor and removes it.
//   - Removes the actor from the host so new requests start a fresh one.
//   - Lets queued requests finish, waiting up to drainTimeout.
//   - Releases the cached weights when the actor exits.
func (m *Manager) Unload(identity string) error {
	if identity == "" {
		return ErrActorNotFound("(unspecified)")
	}
	m.mu.Lock()
	a := m.actors[identity]
	if a == nil {
		m.mu.Unlock()
		return ErrActorNotFound(identity)
	}
	delete(m.actors, identity)
	m.mu.Unlock()
	actorsGauge.Dec()

	m.publisher.Publish(Event{Name: EventUnloadStart, Identity: identity, Fields: map[string]any{"instance_id": a.instanceID, "queue": len(a.mailbox)}})
	a.stop()

	timer := time.NewTimer(m.drainTimeout)
	defer timer.Stop()
	select {
	case <-a.done:
	case <-timer.C:
		m.publisher.Publish(Event{Name: EventUnloadTimeout, Identity: identity, Fields: map[string]any{"inflight": int(a.inflight.Load()), "queue": len(a.mailbox)}})
		a.log.Warn().Dur("timeout", m.drainTimeout).Msg("unload drain timed out; actor finishes in background")
		return nil
	}
	m.publisher.Publish(Event{Name: EventUnloadDone, Identity: identity, Fields: map[string]any{}})
	a.log.Info().Msg("actor unloaded")
	return nil
}
