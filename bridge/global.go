package bridge

import (
	"sync"
	"time"
)

// The default bridge is a process-wide convenience for producers that do
// not want to thread a *Bridge through their call graph. It is an explicit
// holder, not ambient state: the hosting process configures it, uses it,
// and tears it down deterministically before exit. There is no
// exit-hook magic.
var defaultHolder holder

type holder struct {
	mu     sync.Mutex
	opts   []Option
	bridge *Bridge
}

// Configure records the options the default bridge will be built with on
// first use. The options are validated immediately.
//
// Returns ErrAlreadyConfigured if the default bridge has already been
// built; call CloseDefault first to reconfigure.
func Configure(opts ...Option) error {
	defaultHolder.mu.Lock()
	defer defaultHolder.mu.Unlock()

	if defaultHolder.bridge != nil {
		return ErrAlreadyConfigured
	}
	if _, err := newConfig(opts); err != nil {
		return err
	}
	defaultHolder.opts = opts
	return nil
}

// Default returns the process-wide bridge, building and starting it on
// first use from the options given to Configure. Without prior
// configuration the bridge has no API key and is therefore Disabled.
func Default() *Bridge {
	defaultHolder.mu.Lock()
	defer defaultHolder.mu.Unlock()

	if defaultHolder.bridge == nil {
		// Options were validated in Configure; with no configuration
		// the defaults are trivially valid.
		b, err := New(defaultHolder.opts...)
		if err != nil {
			b, _ = New(WithEnabled(false))
		}
		defaultHolder.bridge = b
		b.Start()
	}
	return defaultHolder.bridge
}

// Emit forwards one event through the default bridge. Returns false when
// the default bridge is disabled (the usual case when Configure was never
// called) or the queue was full.
func Emit(eventType, content, operationID string, opts ...EmitOption) bool {
	return Default().Emit(eventType, content, operationID, opts...)
}

// CloseDefault stops the default bridge, flushing pending events, and
// clears the holder. The hosting process should call this once before
// exit. Safe to call when no default bridge was ever built.
func CloseDefault(timeout time.Duration) {
	defaultHolder.mu.Lock()
	b := defaultHolder.bridge
	defaultHolder.bridge = nil
	defaultHolder.opts = nil
	defaultHolder.mu.Unlock()

	if b != nil {
		b.Stop(timeout)
	}
}
