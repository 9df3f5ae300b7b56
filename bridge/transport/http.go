package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// Default tuning for the HTTP transport. Values mirror the collaboration
// server's expectations: small batches arrive frequently, so connections
// are kept alive and reused rather than re-established per batch.
const (
	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultMaxRetries is the number of retries after the initial
	// attempt for retriable failures.
	DefaultMaxRetries = 3

	// DefaultBackoffBase is the base delay for exponential backoff
	// between retries.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultBackoffMax caps the exponential backoff delay.
	DefaultBackoffMax = 10 * time.Second

	// DefaultUserAgent identifies the bridge on the wire.
	DefaultUserAgent = "eventbridge-go/1.0"

	// Connection pool sizing: up to 10 persistent connections to the
	// collaboration host, 20 idle connections total.
	poolPerHost = 10
	poolTotal   = 20
)

// retriableStatus is the set of HTTP status codes worth retrying: rate
// limiting and transient server-side failures. Anything else (including
// all other 4xx) is treated as a definitive rejection.
var retriableStatus = map[int]bool{
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// HTTPTransport implements Transport over a pooled, keep-alive HTTP client.
//
// Each batch becomes one POST with a JSON body of shape
// {"events": [...]}. Every request carries the static API key header;
// constructing a transport without a key is a programming error the bridge
// prevents by refusing to run unauthenticated (it disables itself instead).
//
// Retries apply only within a single Send: network failures and a fixed
// set of retriable HTTP statuses (429, 500, 502, 503, 504) are retried
// with exponential backoff up to the configured limit. The dispatcher
// never retries a batch a second time once Send returns.
type HTTPTransport struct {
	endpoint    string
	apiKey      string
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	client      *http.Client
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithMaxRetries sets how many times a retriable failure is retried after
// the initial attempt. Zero disables retries.
func WithMaxRetries(n int) HTTPOption {
	return func(t *HTTPTransport) {
		t.maxRetries = n
	}
}

// WithBackoff sets the exponential backoff base delay and cap.
func WithBackoff(base, max time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.backoffBase = base
		t.backoffMax = max
	}
}

// WithUserAgent overrides the User-Agent request header.
func WithUserAgent(ua string) HTTPOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Useful for
// tests and for callers with their own pool or TLS configuration.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// NewHTTPTransport creates a transport POSTing batches to endpoint,
// authenticating every request with apiKey.
func NewHTTPTransport(endpoint, apiKey string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint:    endpoint,
		apiKey:      apiKey,
		userAgent:   DefaultUserAgent,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		backoffMax:  DefaultBackoffMax,
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        poolTotal,
				MaxIdleConnsPerHost: poolPerHost,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send delivers one batch, retrying transient failures with exponential
// backoff. The returned Result carries the classified final outcome and
// the number of requests issued.
func (t *HTTPTransport) Send(ctx context.Context, events []event.Event) Result {
	body, err := json.Marshal(event.Batch{Events: events})
	if err != nil {
		// Events are plain structs of scalars; this only fires on a
		// programming error in the metadata value model.
		return Result{Status: StatusHTTPError, Err: fmt.Errorf("marshal batch: %w", err)}
	}

	var last Result
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if !t.sleep(ctx, computeBackoff(attempt-1, t.backoffBase, t.backoffMax)) {
				return last
			}
		}

		last = t.attempt(ctx, body)
		last.Attempts = attempt + 1
		if last.OK() || !t.retriable(last) {
			return last
		}
	}
	return last
}

// attempt issues a single request and classifies its outcome.
func (t *HTTPTransport) attempt(ctx context.Context, body []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Status: StatusConnectionError, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", t.apiKey)
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return classifySendError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused by the pool.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Status: StatusOK, HTTPCode: resp.StatusCode}
	}
	return Result{
		Status:   StatusHTTPError,
		HTTPCode: resp.StatusCode,
		Err:      fmt.Errorf("collaboration server returned %s", resp.Status),
	}
}

// retriable reports whether the failed result is worth another attempt.
func (t *HTTPTransport) retriable(r Result) bool {
	switch r.Status {
	case StatusConnectionError, StatusTimeout:
		return true
	case StatusHTTPError:
		return retriableStatus[r.HTTPCode]
	default:
		return false
	}
}

// sleep waits for d or until the context is done. Returns false when
// the context ended first.
func (t *HTTPTransport) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// classifySendError maps a client.Do error to a transport status.
//
// Timeouts (client timeout, context deadline) are distinguished from
// connection-level failures so the dispatcher can count them separately.
func classifySendError(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Status: StatusTimeout, Err: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Result{Status: StatusTimeout, Err: err}
	}
	return Result{Status: StatusConnectionError, Err: err}
}

// computeBackoff calculates the delay before a retry using exponential
// backoff with jitter:
//
//	delay = min(base * 2^attempt, max) + jitter(0, base)
//
// The jitter spreads retries from concurrent bridges so a recovering
// server is not hit by a synchronized burst.
func computeBackoff(attempt int, base, max time.Duration) time.Duration {
	delay := base * (1 << attempt)
	if delay > max {
		delay = max
	}
	if base <= 0 {
		return delay
	}
	// Note: math/rand jitter for retry timing, not security-sensitive.
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404
	return delay + jitter
}
