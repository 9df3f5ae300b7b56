package bridge

import (
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/eventbridge-go/bridge/archive"
	"github.com/dshills/eventbridge-go/bridge/transport"
)

// Defaults for bridge construction. Every knob has a working default so a
// bridge needs nothing beyond an endpoint and an API key.
const (
	// DefaultEndpoint is the collaboration server ingestion URL used
	// when no endpoint option is given.
	DefaultEndpoint = "http://localhost:8081/api/events"

	// DefaultBatchSize is the flush threshold in events.
	DefaultBatchSize = 10

	// DefaultBatchTimeout is the longest a buffered event waits before
	// a flush is forced.
	DefaultBatchTimeout = 500 * time.Millisecond

	// DefaultQueueCapacity bounds the producer-facing event queue.
	DefaultQueueCapacity = 1000

	// DefaultMaxRetries is the transport-level retry budget per batch.
	DefaultMaxRetries = 3

	// DefaultPollInterval is how often the dispatcher wakes to check
	// the queue and the stop signal.
	DefaultPollInterval = 100 * time.Millisecond
)

// config collects options before the Bridge is built.
type config struct {
	endpoint       string
	apiKey         string
	enabled        bool
	batchSize      int
	batchTimeout   time.Duration
	maxRetries     int
	queueCapacity  int
	requestTimeout time.Duration
	pollInterval   time.Duration

	transport transport.Transport
	archive   archive.Archive
	metrics   *Metrics
	tracer    trace.Tracer
	logger    *log.Logger
}

// Option is a functional option for configuring a Bridge.
//
// Options are applied in order at construction and validated as they are
// applied. Only specify the configuration you need:
//
//	br, err := bridge.New(
//	    bridge.WithEndpoint("https://collab.example.com/api/events"),
//	    bridge.WithAPIKey(key),
//	    bridge.WithBatchSize(25),
//	)
type Option func(*config) error

// WithEndpoint sets the collaboration server ingestion URL.
//
// Default: DefaultEndpoint.
func WithEndpoint(url string) Option {
	return func(c *config) error {
		if url == "" {
			return ErrInvalidEndpoint
		}
		c.endpoint = url
		return nil
	}
}

// WithAPIKey sets the static credential sent with every request.
//
// A bridge without an API key is Disabled: it will never send an
// unauthenticated request, and Emit returns false immediately.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		c.apiKey = key
		return nil
	}
}

// WithEnabled explicitly enables or disables the bridge. A bridge is
// enabled only when this flag is true AND an API key is configured.
//
// Default: true.
func WithEnabled(enabled bool) Option {
	return func(c *config) error {
		c.enabled = enabled
		return nil
	}
}

// WithBatchSize sets the flush threshold: the dispatcher flushes as soon
// as this many events are buffered.
//
// Default: DefaultBatchSize (10).
//
// Tuning guidance:
//   - Chatty producers (per-line stdout events): 25-100 to coalesce bursts.
//   - Sparse status events: keep small; the batch timeout bounds latency
//     anyway.
func WithBatchSize(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		c.batchSize = n
		return nil
	}
}

// WithBatchTimeout sets the maximum time a buffered event waits before the
// dispatcher forces a flush, bounding worst-case delivery latency for a
// trickle of events.
//
// Default: DefaultBatchTimeout (500ms).
func WithBatchTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return ErrInvalidBatchTimeout
		}
		c.batchTimeout = d
		return nil
	}
}

// WithQueueCapacity sets the bounded queue size between producers and the
// dispatcher. When the queue is full, new events are shed (and counted),
// never buffered elsewhere.
//
// Default: DefaultQueueCapacity (1000).
func WithQueueCapacity(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return ErrInvalidQueueCapacity
		}
		c.queueCapacity = n
		return nil
	}
}

// WithMaxRetries sets the transport-level retry budget for one batch.
// Retries apply only to network failures and retriable HTTP statuses;
// the dispatcher never retries a batch once the transport gives up.
//
// Default: DefaultMaxRetries (3).
func WithMaxRetries(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return ErrInvalidMaxRetries
		}
		c.maxRetries = n
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout used by the default HTTP
// transport. Ignored when WithTransport supplies a custom transport.
//
// Default: transport.DefaultRequestTimeout (5s).
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.requestTimeout = d
		return nil
	}
}

// WithPollInterval sets how often the dispatcher wakes to poll the queue,
// which also bounds how quickly it observes a stop signal.
//
// Default: DefaultPollInterval (100ms). Mostly useful in tests.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return ErrInvalidPollInterval
		}
		c.pollInterval = d
		return nil
	}
}

// WithTransport replaces the outbound transport. The endpoint, API key,
// retry, and request-timeout options are ignored when a custom transport
// is supplied; the transport owns its own wire configuration.
func WithTransport(t transport.Transport) Option {
	return func(c *config) error {
		c.transport = t
		return nil
	}
}

// WithArchive attaches a local archive that records every flushed batch
// with its delivery outcome. Archive failures are logged and never affect
// delivery.
func WithArchive(a archive.Archive) Option {
	return func(c *config) error {
		c.archive = a
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics mirror updated by the queue
// and dispatcher paths.
func WithMetrics(m *Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithTracer attaches an OpenTelemetry tracer; every flush becomes a span
// carrying batch size, attempt count, and outcome.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) error {
		c.tracer = tracer
		return nil
	}
}

// WithLogger sets the logger for bridge diagnostics (drop warnings, send
// failures, lifecycle notices).
//
// Default: a stderr logger with a "bridge: " prefix.
func WithLogger(l *log.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// newConfig applies options over defaults and validates the result.
func newConfig(opts []Option) (config, error) {
	c := config{
		endpoint:       DefaultEndpoint,
		enabled:        true,
		batchSize:      DefaultBatchSize,
		batchTimeout:   DefaultBatchTimeout,
		maxRetries:     DefaultMaxRetries,
		queueCapacity:  DefaultQueueCapacity,
		requestTimeout: transport.DefaultRequestTimeout,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return config{}, err
		}
	}
	return c, nil
}
