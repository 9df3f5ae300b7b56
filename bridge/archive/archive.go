// Package archive provides optional local recording of flushed batches.
//
// The bridge delivers at most once: a failed batch is dropped on the floor,
// never requeued. An Archive gives operators a local record of what was
// actually delivered or lost, queryable after the run. It is strictly a
// record of outcomes; nothing in the bridge reads it back to resend.
package archive

import (
	"context"
	"errors"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// ErrClosed is returned when an archive is used after Close.
var ErrClosed = errors.New("archive is closed")

// StoredEvent is one archived event together with its delivery outcome.
type StoredEvent struct {
	// Event is the archived event, exactly as it was flushed.
	Event event.Event

	// Delivered reports whether the batch containing this event was
	// accepted by the collaboration server.
	Delivered bool

	// RecordedAt is milliseconds since the Unix epoch when the flush
	// outcome was archived.
	RecordedAt int64
}

// Archive persists flush outcomes for post-run inspection.
//
// Implementations can use:
//   - In-memory storage (testing, see memory.go)
//   - SQLite single-file databases (local runs, see sqlite.go)
//   - MySQL (shared deployments, see mysql.go)
//
// All implementations must be safe for concurrent use, though the bridge
// only ever calls RecordBatch from its single dispatcher goroutine.
type Archive interface {
	// RecordBatch archives one flushed batch with its delivery outcome.
	RecordBatch(ctx context.Context, events []event.Event, delivered bool) error

	// ByOperation returns all archived events for an operation, in the
	// order they were recorded. Returns an empty slice when the
	// operation has no archived events.
	ByOperation(ctx context.Context, operationID string) ([]StoredEvent, error)

	// Close releases the archive's resources. Further calls fail with
	// ErrClosed.
	Close() error
}
