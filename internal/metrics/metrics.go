package metrics

import "sync"

// Counter names. Everything funnels into a single events metric with an
// `event` label; see PrometheusHandler.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventRoomJoin   = "room_join"
	EventRoomLeave  = "room_leave"
	EventSignal     = "signal_relayed"
	EventBroadcast  = "broadcast"

	AuthFailure = "auth_failure"

	DropReasonUnknownTarget      = "signal_unknown_target"
	DropReasonRateLimited        = "rate_limited"
	DropReasonOversized          = "oversized_message"
	DropReasonSendQueueFull      = "send_queue_full"
	DropReasonTooManyConnections = "too_many_connections"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// A zero Metrics is usable; the map is allocated lazily so callers can pass
// &Metrics{} without calling New.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		snap[k] = v
	}
	return snap
}
