// Package manager hosts the model actors. Every ActorIdentity (a continent
// code or a fixed singleton key) maps to one long-lived actor: a goroutine
// draining a bounded mailbox, so requests for one identity run strictly one
// at a time while distinct identities run concurrently. An actor loads the
// model weights lazily on its first request and keeps them for its lifetime.
//
// The package is split by concern:
//
//   - manager.go: Manager type, constructor, actor lookup/creation, Close.
//   - config.go: Config and package defaults.
//   - types.go: lifecycle states and the per-actor request/result types.
//   - actor.go: the actor goroutine and its Unloaded -> Loaded transition.
//   - admission.go: mailbox admission with wait limits (429 mapping).
//   - classify.go: Classify/Decide/Warm entry points.
//   - errors.go: error types and helpers (IsTooBusy, IsModelUnavailable, ...).
//   - evict.go: LRU eviction of idle actors when MaxActors is set.
//   - unload.go: graceful drain and removal of an actor.
//   - status_report.go: Status/Snapshot reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: prometheus collectors.
//
// External packages should use the public methods only (New, Classify,
// Decide, Warm, Unload, Status, Ready, Close).
package manager
