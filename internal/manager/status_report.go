package manager

import (
	"sort"
	"time"

	"mnistd/pkg/types"
)

// Snapshot returns a read-only view of the actor for identity.
func (m *Manager) Snapshot(identity string) (Snapshot, bool) {
	m.mu.RLock()
	a := m.actors[identity]
	m.mu.RUnlock()
	if a == nil {
		return Snapshot{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Identity: a.identity, InstanceID: a.instanceID, State: a.state, Err: a.lastErr}, true
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	actors := make([]*actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	closed := m.closed
	m.mu.RUnlock()

	now := time.Now()
	resp := types.StatusResponse{
		State:             "ready",
		WeightsKey:        m.key,
		UptimeSeconds:     int64(now.Sub(m.started).Seconds()),
		ServerTimeUnix:    now.Unix(),
		LoadsTotal:        m.loads.Load(),
		LoadFailuresTotal: m.loadFailures.Load(),
		EvictionsTotal:    m.evictions.Load(),
	}
	if closed {
		resp.State = "closed"
	}
	m.errMu.Lock()
	resp.LastError = m.lastErr
	m.errMu.Unlock()

	resp.Actors = make([]types.ActorStatus, 0, len(actors))
	for _, a := range actors {
		st := a.status()
		switch State(st.State) {
		case StateLoading:
			resp.WarmupsInProgress++
		case StateDraining:
			resp.DrainingCount++
		}
		resp.Actors = append(resp.Actors, st)
	}
	sort.Slice(resp.Actors, func(i, j int) bool { return resp.Actors[i].Identity < resp.Actors[j].Identity })
	return resp
}

func (a *actor) status() types.ActorStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := types.ActorStatus{
		Identity:      a.identity,
		InstanceID:    a.instanceID,
		State:         string(a.state),
		QueueLen:      len(a.mailbox),
		Inflight:      int(a.inflight.Load()),
		MaxQueueDepth: cap(a.mailbox),
		LastUsed:      a.lastUsed.Unix(),
		Precision:     a.precision,
		Digest:        a.digest,
		Served:        a.served,
		LoadFailures:  a.loadFailures,
		LastError:     a.lastErr,
	}
	if !a.loadedAt.IsZero() {
		st.LoadedAt = a.loadedAt.Unix()
	}
	return st
}
