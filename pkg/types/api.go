package types

// DecisionResponse is returned by POST */decide.
type DecisionResponse struct {
	// Most likely digit class.
	// example: 7
	Class int `json:"class" example:"7"`
	// Probability per class, ordered 0-9; sums to 1.
	// example: [0.01,0.01,0.02,0.01,0.01,0.01,0.01,0.9,0.01,0.01]
	Probabilities []float32 `json:"probabilities"`
}

// WarmResponse acknowledges POST /actors/{id}/warm.
type WarmResponse struct {
	// Identity of the actor being warmed.
	// example: EU
	Identity string `json:"identity" example:"EU"`
	// Always "accepted"; the load runs asynchronously.
	// example: accepted
	Status string `json:"status" example:"accepted"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ActorStatus summarizes one actor for /status.
type ActorStatus struct {
	// Routing identity served by this actor (continent code or fixed key).
	// example: EU
	Identity string `json:"identity" example:"EU"`
	// Per-incarnation id; changes when the actor is unloaded and recreated.
	// example: 5f0c7a52-1d6e-4a7b-9a53-3c1f4f1e2b10
	InstanceID string `json:"instance_id" example:"5f0c7a52-1d6e-4a7b-9a53-3c1f4f1e2b10"`
	// Lifecycle state (unloaded, loading, ready, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// Requests waiting in the mailbox.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests being processed right now (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Mailbox capacity before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last time this actor served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// When the weights were loaded (unix seconds); 0 while unloaded.
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
	// Weight precision of the loaded model.
	// example: float32
	Precision string `json:"precision,omitempty" example:"float32"`
	// sha256 of the weight blob.
	Digest string `json:"digest,omitempty"`
	// Successful requests served.
	// example: 42
	Served uint64 `json:"served" example:"42"`
	// Failed load attempts.
	// example: 0
	LoadFailures uint64 `json:"load_failures" example:"0"`
	// Last load error, if the actor is unloaded after a failure.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Live actors.
	Actors []ActorStatus `json:"actors"`
	// Overall state: ready or closed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Blob key the actors load weights from.
	// example: mnist.bin
	WeightsKey string `json:"weights_key" example:"mnist.bin"`
	// Last load error observed by any actor.
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Successful weight loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Failed weight loads.
	// example: 1
	LoadFailuresTotal uint64 `json:"load_failures_total" example:"1"`
	// Actors dropped to honour the actor cap.
	// example: 0
	EvictionsTotal uint64 `json:"evictions_total" example:"0"`
	// Actors currently loading.
	// example: 0
	WarmupsInProgress int `json:"warmups_in_progress" example:"0"`
	// Actors currently draining.
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
}
