package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled gates per-input tracing, which is noisy during scrolling.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("REEL_TRACE") != "")
}

// TraceEnabled reports whether REEL_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides the flag, for tests and the --trace flag.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
