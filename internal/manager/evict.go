package manager

import "time"

// pickLRULocked returns the least recently used idle actor (nothing queued
// or in flight), or nil when every actor is busy. m.mu must be held.
func (m *Manager) pickLRULocked() *actor {
	var (
		lru     *actor
		lruUsed time.Time
	)
	for _, a := range m.actors {
		if !a.idle() {
			continue
		}
		used := a.lastUsedAt()
		if lru == nil || used.Before(lruUsed) {
			lru, lruUsed = a, used
		}
	}
	return lru
}

// evict stops an actor already removed from the host. It does not wait
// for the actor to exit.
func (m *Manager) evict(a *actor) {
	m.evictions.Add(1)
	actorsGauge.Dec()
	m.publisher.Publish(Event{Name: EventEvicted, Identity: a.identity, Fields: map[string]any{"instance_id": a.instanceID, "max_actors": m.maxActors}})
	a.log.Info().Int("max_actors", m.maxActors).Msg("actor evicted")
	a.stop()
}
