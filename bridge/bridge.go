// Package bridge forwards operation events to a collaboration server.
//
// The bridge sits between an in-process producer (an assessment operation
// emitting tool output, status notices, and lifecycle markers) and a remote
// HTTP ingestion endpoint. Producers call Emit, which never blocks
// materially; a single dispatcher goroutine drains a bounded queue, batches
// events, and POSTs each batch. Network failure, partial outages, and
// shutdown mid-flight are absorbed: failures are counted and logged, never
// propagated to the producer or the hosting process.
//
// Delivery is at most once. A batch that fails after transport-level
// retries is dropped and counted, not requeued. Bounded memory and
// producer isolation are worth more here than delivery guarantees.
package bridge

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
	"github.com/dshills/eventbridge-go/bridge/transport"
)

// State is the lifecycle state of a Bridge.
type State int

const (
	// StateDisabled means the bridge was constructed without a
	// credential or with the enabled flag off. Terminal: a disabled
	// bridge never sends anything and Emit always returns false.
	StateDisabled State = iota

	// StateStopped means the bridge is enabled but no dispatcher is
	// running.
	StateStopped

	// StateRunning means exactly one dispatcher goroutine is draining
	// the queue.
	StateRunning

	// StateStopping means Stop has signaled the dispatcher and is
	// waiting for the final flush.
	StateStopping
)

// String returns the state name for logging and snapshots.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Bridge is the producer-facing facade: Emit, Start, Stop, Stats.
//
// A Bridge owns its queue and dispatcher. Any number of goroutines may
// call Emit concurrently; lifecycle methods are also safe to call from any
// goroutine and are idempotent.
type Bridge struct {
	cfg       config
	queue     *Queue
	transport transport.Transport
	logger    *log.Logger
	stats     counters

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	done   chan struct{}
}

// New constructs a Bridge from options. The bridge starts in StateStopped
// (call Start to launch the dispatcher) or StateDisabled when no API key
// is configured or WithEnabled(false) was given.
func New(opts ...Option) (*Bridge, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		cfg:    cfg,
		queue:  NewQueue(cfg.queueCapacity),
		logger: cfg.logger,
	}
	if b.logger == nil {
		b.logger = log.New(os.Stderr, "bridge: ", log.LstdFlags)
	}

	if !cfg.enabled || cfg.apiKey == "" {
		// No credential means no request ever leaves the process.
		b.state = StateDisabled
		b.logger.Printf("event bridge disabled (no API key or disabled)")
		return b, nil
	}

	b.state = StateStopped
	b.transport = cfg.transport
	if b.transport == nil {
		b.transport = transport.NewHTTPTransport(cfg.endpoint, cfg.apiKey,
			transport.WithMaxRetries(cfg.maxRetries),
			transport.WithRequestTimeout(cfg.requestTimeout),
		)
	}
	return b, nil
}

// EmitOption sets an optional field on an event being emitted.
type EmitOption func(*event.Event)

// WithSession routes the event to a collaboration session.
func WithSession(sessionID string) EmitOption {
	return func(ev *event.Event) { ev.SessionID = sessionID }
}

// WithUser attributes the event to a user.
func WithUser(userID string) EmitOption {
	return func(ev *event.Event) { ev.UserID = userID }
}

// WithMeta attaches a metadata bag to the event. The bag must not be
// modified after emission.
func WithMeta(m event.Metadata) EmitOption {
	return func(ev *event.Event) { ev.Metadata = m }
}

// Emit queues one event for delivery.
//
// Returns true when the event was queued, false when the bridge is
// disabled or the queue stayed full for the whole bounded wait window (in
// which case the event is discarded and counted, never retried). Emit
// assigns the event ID and timestamp; delivery delay never affects event
// time.
func (b *Bridge) Emit(eventType, content, operationID string, opts ...EmitOption) bool {
	if b.State() == StateDisabled {
		return false
	}

	ev := event.New(eventType, content, operationID)
	for _, opt := range opts {
		opt(&ev)
	}

	ok := b.queue.Put(ev)
	if !ok {
		b.logger.Printf("event queue full, dropping event %s", ev.ID)
		if b.cfg.metrics != nil {
			b.cfg.metrics.eventDropped()
		}
	}
	if b.cfg.metrics != nil {
		b.cfg.metrics.setQueueDepth(b.queue.Len())
	}
	return ok
}

// Start launches the dispatcher goroutine. Idempotent: if a dispatcher is
// already alive (including one abandoned by a timed-out Stop), Start
// returns without effect. Start on a disabled bridge is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDisabled {
		return
	}
	if b.done != nil {
		select {
		case <-b.done:
			// Previous dispatcher fully exited; safe to relaunch.
		default:
			return
		}
	}

	b.stopCh = make(chan struct{})
	b.done = make(chan struct{})
	b.state = StateRunning
	go b.dispatch(b.stopCh, b.done)
	b.logger.Printf("event bridge dispatcher started")
}

// Stop signals the dispatcher, waits up to timeout for it to drain the
// queue and perform the final forced flush, and reports whether it stopped
// cleanly. Idempotent: stopping a bridge that is not running is a no-op.
//
// Stop never aborts an in-flight request: a flush that has already started
// (including its retry sequence) runs to completion even if timeout
// expires first, in which case the dispatcher is abandoned still running
// and a later Start will refuse to launch a second one until it exits.
func (b *Bridge) Stop(timeout time.Duration) {
	b.mu.Lock()
	if b.state != StateRunning {
		b.mu.Unlock()
		return
	}
	b.state = StateStopping
	close(b.stopCh)
	done := b.done
	b.mu.Unlock()

	b.logger.Printf("stopping event bridge dispatcher")
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		b.logger.Printf("event bridge dispatcher stopped")
	case <-timer.C:
		b.logger.Printf("event bridge dispatcher did not stop within %v", timeout)
	}

	b.mu.Lock()
	b.state = StateStopped
	b.mu.Unlock()
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Enabled reports whether the bridge accepts events at all.
func (b *Bridge) Enabled() bool {
	return b.State() != StateDisabled
}

// Stats returns a snapshot of the bridge counters plus the live queue
// depth and drop count. Safe to call from any goroutine.
func (b *Bridge) Stats() Stats {
	return Stats{
		EventsSent:       b.stats.eventsSent.Load(),
		EventsFailed:     b.stats.eventsFailed.Load(),
		BatchesSent:      b.stats.batchesSent.Load(),
		ConnectionErrors: b.stats.connectionErrors.Load(),
		Timeouts:         b.stats.timeouts.Load(),
		HTTPErrors:       b.stats.httpErrors.Load(),
		DroppedEvents:    b.queue.Dropped(),
		QueueDepth:       b.queue.Len(),
		Enabled:          b.Enabled(),
		State:            b.State(),
	}
}
