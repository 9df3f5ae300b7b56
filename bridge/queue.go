package bridge

import (
	"sync/atomic"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// putWait is the longest a producer will ever be held while the queue is
// full. After this window the event is shed, not queued for later.
const putWait = 100 * time.Millisecond

// Queue is the bounded FIFO between event producers and the dispatcher.
//
// Capacity is fixed at construction. When the queue is full, Put waits for
// at most putWait and then discards the event, incrementing a monotonic
// dropped counter. Producers are never made to wait materially, and memory
// never grows without bound. Under load the newest overflow is shed; events
// already queued are never evicted.
//
// Ownership: any number of goroutines may call Put; only the dispatcher
// calls Get.
type Queue struct {
	events  chan event.Event
	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	return &Queue{
		events: make(chan event.Event, capacity),
	}
}

// Put attempts to enqueue the event, waiting at most putWait when the queue
// is full. Returns false when the event was dropped; the drop has already
// been counted.
func (q *Queue) Put(ev event.Event) bool {
	select {
	case q.events <- ev:
		return true
	default:
	}

	timer := time.NewTimer(putWait)
	defer timer.Stop()
	select {
	case q.events <- ev:
		return true
	case <-timer.C:
		q.dropped.Add(1)
		return false
	}
}

// Get removes and returns the oldest event, waiting up to timeout for one
// to arrive. The second return value is false on timeout. A non-positive
// timeout polls without waiting.
func (q *Queue) Get(timeout time.Duration) (event.Event, bool) {
	if timeout <= 0 {
		select {
		case ev := <-q.events:
			return ev, true
		default:
			return event.Event{}, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-q.events:
		return ev, true
	case <-timer.C:
		return event.Event{}, false
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int { return len(q.events) }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return cap(q.events) }

// Dropped returns the total number of events discarded because the queue
// was full. The counter only ever increases.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
