// Package transport turns event batches into outbound requests against the
// collaboration server and classifies the outcome of each exchange.
package transport

import (
	"context"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// Status classifies the outcome of one batch send.
//
// Failures are values, not panics or propagated errors: the dispatcher
// inspects the status to decide which statistic to bump and what to log,
// and nothing here ever reaches producer-facing code.
type Status int

const (
	// StatusOK means the server accepted the batch (2xx response).
	StatusOK Status = iota

	// StatusConnectionError means the request never completed an HTTP
	// exchange: DNS failure, connection refused, reset, and similar
	// network-level failures.
	StatusConnectionError

	// StatusTimeout means the request exceeded its time budget before a
	// response arrived.
	StatusTimeout

	// StatusHTTPError means the server answered with a non-2xx status
	// after any transport-level retries were exhausted.
	StatusHTTPError
)

// String returns the status name for logging and metric labels.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConnectionError:
		return "connection_error"
	case StatusTimeout:
		return "timeout"
	case StatusHTTPError:
		return "http_error"
	default:
		return "unknown"
	}
}

// Result describes what happened to one batch send attempt sequence.
type Result struct {
	// Status classifies the final outcome.
	Status Status

	// HTTPCode is the last HTTP status code observed, or zero if no
	// response was ever received.
	HTTPCode int

	// Attempts is the number of requests actually issued (>= 1 for any
	// send that reached the network).
	Attempts int

	// Err is the underlying error for non-OK outcomes, nil on success.
	Err error
}

// OK reports whether the batch was accepted.
func (r Result) OK() bool { return r.Status == StatusOK }

// Transport sends one batch of events as a single outbound request.
//
// Implementations must be safe for use by a single dispatcher goroutine and
// must never panic; every failure mode is expressed through the Result.
type Transport interface {
	// Send delivers the batch and reports the classified outcome.
	// The context bounds the whole attempt sequence including retries.
	Send(ctx context.Context, events []event.Event) Result
}
