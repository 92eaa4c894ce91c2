package metrics

import "sync"

// Counter names shared by the signaling and analytics paths.
const (
	WSConnections = "ws_connections"
	WSDisconnects = "ws_disconnects"
	WSRejected    = "ws_rejected_origin"

	EventsReceived  = "events_received"
	EventsMalformed = "events_malformed"
	EventsUnknown   = "events_unknown"

	RelayForwarded     = "relay_forwarded"
	RelayUnknownTarget = "relay_dropped_unknown_target"

	JoinAccepted      = "join_accepted"
	JoinUsernameTaken = "join_rejected_username_taken"
	JoinInvalid       = "join_ignored_invalid"

	RateLimited       = "rate_limited"
	SendQueueOverflow = "send_queue_overflow"

	AnalyticsDropped = "analytics_dropped"
	AnalyticsErrors  = "analytics_errors"

	AdminLoginFailed = "admin_login_failed"
)

// Metrics is a concurrency-safe named counter registry.
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
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, n uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of every counter.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return map[string]uint64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
