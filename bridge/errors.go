package bridge

import "errors"

// ErrInvalidBatchSize indicates a non-positive batch size option.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// ErrInvalidBatchTimeout indicates a non-positive batch timeout option.
var ErrInvalidBatchTimeout = errors.New("batch timeout must be positive")

// ErrInvalidPollInterval indicates a non-positive poll interval option.
var ErrInvalidPollInterval = errors.New("poll interval must be positive")

// ErrInvalidQueueCapacity indicates a non-positive queue capacity option.
var ErrInvalidQueueCapacity = errors.New("queue capacity must be at least 1")

// ErrInvalidMaxRetries indicates a negative retry count option.
var ErrInvalidMaxRetries = errors.New("max retries cannot be negative")

// ErrInvalidEndpoint indicates an empty endpoint URL option.
var ErrInvalidEndpoint = errors.New("endpoint URL cannot be empty")

// ErrAlreadyConfigured is returned by Configure after the default bridge
// has been built; reconfiguration requires CloseDefault first.
var ErrAlreadyConfigured = errors.New("default bridge already built; call CloseDefault before reconfiguring")
