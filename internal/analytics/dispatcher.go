package analytics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/metrics"
)

type op struct {
	name string
	run  func(Store) error
}

// Dispatcher is a Recorder that applies writes to a Store on a single
// background goroutine. Enqueueing never blocks: when the queue is full the
// write is dropped and counted.
type Dispatcher struct {
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	ops    chan op

	startOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(store Store, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		log:     logger,
		metrics: m,
		ops:     make(chan op, queueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.loop()
	})
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for o := range d.ops {
		if err := o.run(d.store); err != nil {
			d.metrics.Inc(metrics.AnalyticsErrors)
			d.log.Warn("analytics write failed", "op", o.name, "err", err)
		}
	}
}

// Close stops accepting writes and waits for queued ones to be applied.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.ops)
	d.mu.Unlock()

	d.Start()
	<-d.done
}

func (d *Dispatcher) enqueue(o op) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.Inc(metrics.AnalyticsDropped)
		return
	}
	select {
	case d.ops <- o:
	default:
		d.metrics.Inc(metrics.AnalyticsDropped)
		d.log.Debug("analytics queue full, dropping write", "op", o.name)
	}
}

func (d *Dispatcher) LogSession(ev SessionEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	d.enqueue(op{name: "log_session", run: func(s Store) error { return s.SaveSession(ev) }})
}

func (d *Dispatcher) Increment(c Counter) {
	d.enqueue(op{name: "increment_" + string(c), run: func(s Store) error { return s.IncrementCounter(c, 1) }})
}

func (d *Dispatcher) AddOnline(u OnlineUser) {
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now()
	}
	d.enqueue(op{name: "add_online", run: func(s Store) error { return s.PutOnline(u) }})
}

func (d *Dispatcher) RemoveOnline(connID string) {
	d.enqueue(op{name: "remove_online", run: func(s Store) error { return s.DeleteOnline(connID) }})
}
