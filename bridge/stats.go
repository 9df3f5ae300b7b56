package bridge

import "sync/atomic"

// Stats is a read-only snapshot of bridge counters.
//
// Counters are process-lifetime totals; queue depth is the live depth at
// snapshot time. Operators observe bridge failures only here and in logs.
// Nothing in the bridge ever surfaces a delivery failure to producers.
type Stats struct {
	// EventsSent counts events in batches the server accepted.
	EventsSent uint64

	// EventsFailed counts events in batches that failed after the
	// transport exhausted its retries. Failed events are gone; delivery
	// is at most once.
	EventsFailed uint64

	// BatchesSent counts accepted batches.
	BatchesSent uint64

	// ConnectionErrors counts flushes that failed at the network level.
	ConnectionErrors uint64

	// Timeouts counts flushes that failed on request timeout.
	Timeouts uint64

	// HTTPErrors counts flushes rejected by the server (non-2xx after
	// retries).
	HTTPErrors uint64

	// DroppedEvents counts events shed because the queue was full.
	DroppedEvents uint64

	// QueueDepth is the number of events waiting in the queue right now.
	QueueDepth int

	// Enabled reports whether the bridge will accept and forward events.
	Enabled bool

	// State is the lifecycle state at snapshot time.
	State State
}

// counters holds the dispatcher-maintained totals. Only the dispatcher
// writes; any goroutine may read through Stats().
type counters struct {
	eventsSent       atomic.Uint64
	eventsFailed     atomic.Uint64
	batchesSent      atomic.Uint64
	connectionErrors atomic.Uint64
	timeouts         atomic.Uint64
	httpErrors       atomic.Uint64
}
