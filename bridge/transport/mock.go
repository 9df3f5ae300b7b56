package transport

import (
	"context"
	"sync"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// MockTransport is a test implementation of Transport.
//
// Use MockTransport to verify dispatcher behavior without a collaboration
// server. It provides:
//   - Recorded batch history (deep-copied at Send time)
//   - Scripted result sequences for failure injection
//   - Thread-safe operation
//
// Example usage:
//
//	mock := transport.NewMockTransport()
//	mock.QueueResult(transport.Result{Status: transport.StatusConnectionError})
//
//	br, _ := bridge.New(bridge.WithAPIKey("k"), bridge.WithTransport(mock))
//	br.Start()
//	// ... emit events, then inspect mock.Batches()
type MockTransport struct {
	mu      sync.Mutex
	batches [][]event.Event
	results []Result
}

// NewMockTransport creates a mock that accepts every batch until results
// are scripted with QueueResult.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// QueueResult scripts the outcome of a future Send call. Scripted results
// are consumed in FIFO order; once exhausted, Send reports success again.
func (m *MockTransport) QueueResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
}

// Send records a copy of the batch and returns the next scripted result,
// or success when nothing is scripted.
func (m *MockTransport) Send(_ context.Context, events []event.Event) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]event.Event, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)

	if len(m.results) > 0 {
		r := m.results[0]
		m.results = m.results[1:]
		if r.Attempts == 0 {
			r.Attempts = 1
		}
		return r
	}
	return Result{Status: StatusOK, HTTPCode: 200, Attempts: 1}
}

// Batches returns the recorded batch history in send order.
func (m *MockTransport) Batches() [][]event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]event.Event, len(m.batches))
	copy(out, m.batches)
	return out
}

// SendCount returns how many batches have been sent so far.
func (m *MockTransport) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// EventCount returns the total number of events across all recorded batches.
func (m *MockTransport) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}
