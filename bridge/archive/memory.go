package archive

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// MemArchive is an in-memory Archive implementation.
//
// Designed for tests and short-lived local runs. Everything is lost when
// the process exits; use the SQLite or MySQL archives when the record
// needs to outlive the run.
type MemArchive struct {
	mu     sync.RWMutex
	closed bool

	// byOperation indexes stored events by their operation ID,
	// preserving record order per operation.
	byOperation map[string][]StoredEvent
}

// NewMemArchive creates an empty in-memory archive.
func NewMemArchive() *MemArchive {
	return &MemArchive{
		byOperation: make(map[string][]StoredEvent),
	}
}

// RecordBatch stores the batch outcome in memory.
func (a *MemArchive) RecordBatch(_ context.Context, events []event.Event, delivered bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	now := time.Now().UnixMilli()
	for _, ev := range events {
		a.byOperation[ev.OperationID] = append(a.byOperation[ev.OperationID], StoredEvent{
			Event:      ev,
			Delivered:  delivered,
			RecordedAt: now,
		})
	}
	return nil
}

// ByOperation returns a copy of the archived events for the operation.
func (a *MemArchive) ByOperation(_ context.Context, operationID string) ([]StoredEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}

	stored := a.byOperation[operationID]
	out := make([]StoredEvent, len(stored))
	copy(out, stored)
	return out, nil
}

// Close marks the archive closed and drops its contents.
func (a *MemArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	a.byOperation = nil
	return nil
}
