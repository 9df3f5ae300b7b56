package bridge

import (
	"context"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
	"github.com/dshills/eventbridge-go/bridge/transport"
)

// archiveTimeout bounds how long a flush will wait on the archive before
// giving up and logging. The archive is an observer, not a participant.
const archiveTimeout = 5 * time.Second

// dispatch is the single consumer loop. It drains the queue, accumulates
// the current batch, and flushes when the batch is full or the oldest
// buffered event has waited longer than the batch timeout. Flushes are
// synchronous: one batch in flight at a time, batches sent strictly in
// accumulation order.
//
// On stop it drains whatever is still queued and performs one final forced
// flush regardless of batch size, so no buffered event is silently lost
// while the process is alive.
func (b *Bridge) dispatch(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	batch := make([]event.Event, 0, b.cfg.batchSize)
	lastFlush := time.Now()

	for {
		select {
		case <-stopCh:
			b.drain(batch)
			return
		default:
		}

		ev, ok := b.queue.Get(b.cfg.pollInterval)
		if ok {
			batch = append(batch, ev)
		}

		if len(batch) == 0 {
			// Idle: the timeout clock starts with the next buffered
			// event, not from the last flush of a busy period.
			lastFlush = time.Now()
			continue
		}
		if len(batch) >= b.cfg.batchSize || time.Since(lastFlush) >= b.cfg.batchTimeout {
			batch = b.flush(batch)
			lastFlush = time.Now()
		}
	}
}

// drain empties the queue after a stop signal, flushing full batches as
// they form, then force-flushes the remainder.
func (b *Bridge) drain(batch []event.Event) {
	for {
		ev, ok := b.queue.Get(0)
		if !ok {
			break
		}
		batch = append(batch, ev)
		if len(batch) >= b.cfg.batchSize {
			batch = b.flush(batch)
		}
	}
	b.flush(batch)
}

// flush hands the batch to the transport and clears it regardless of
// outcome. A failed batch is counted and logged, never retried here; the
// transport already spent its retry budget.
//
// Returns the cleared batch slice for reuse.
func (b *Bridge) flush(batch []event.Event) []event.Event {
	if len(batch) == 0 {
		return batch
	}

	ctx, span := b.startFlushSpan(context.Background(), len(batch))
	start := time.Now()
	res := b.transport.Send(ctx, batch)
	latency := time.Since(start)
	endFlushSpan(span, res)

	if res.OK() {
		b.stats.eventsSent.Add(uint64(len(batch)))
		b.stats.batchesSent.Add(1)
	} else {
		b.stats.eventsFailed.Add(uint64(len(batch)))
		switch res.Status {
		case transport.StatusConnectionError:
			b.stats.connectionErrors.Add(1)
			b.logger.Printf("connection error sending batch of %d after %d attempts: %v", len(batch), res.Attempts, res.Err)
		case transport.StatusTimeout:
			b.stats.timeouts.Add(1)
			b.logger.Printf("timeout sending batch of %d after %d attempts: %v", len(batch), res.Attempts, res.Err)
		default:
			b.stats.httpErrors.Add(1)
			if res.HTTPCode != 0 {
				b.logger.Printf("server rejected batch of %d (HTTP %d): %v", len(batch), res.HTTPCode, res.Err)
			} else {
				// No request was made, e.g. the batch failed to marshal.
				b.logger.Printf("failed to send batch of %d: %v", len(batch), res.Err)
			}
		}
	}

	if b.cfg.metrics != nil {
		b.cfg.metrics.observeFlush(len(batch), latency, res)
		b.cfg.metrics.setQueueDepth(b.queue.Len())
	}
	b.recordArchive(batch, res.OK())

	return batch[:0]
}

// recordArchive writes the flush outcome to the archive, if one is
// attached. Archive failures never affect delivery accounting.
func (b *Bridge) recordArchive(batch []event.Event, delivered bool) {
	if b.cfg.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := b.cfg.archive.RecordBatch(ctx, batch, delivered); err != nil {
		b.logger.Printf("failed to archive batch of %d: %v", len(batch), err)
	}
}
