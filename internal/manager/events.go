package manager

// Event represents an actor lifecycle event.
// Minimal and stable: name + identity and optional fields via key/values.
type Event struct {
	Name     string
	Identity string
	Fields   map[string]any
}

// Event names.
const (
	EventActorCreated  = "actor_created"
	EventLoadStart     = "load_start"
	EventLoadReady     = "load_ready"
	EventLoadFailed    = "load_failed"
	EventUnloadStart   = "unload_start"
	EventUnloadDone    = "unload_done"
	EventUnloadTimeout = "unload_timeout"
	EventEvicted       = "evicted"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
