// Package logging initializes the process-wide structured logger and
// provides the header-redaction helper the session kernel uses before any
// request/response header crosses into a log line.
package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
)

// Options configures the process-wide logger.
type Options struct {
	Verbose bool // DEBUG level instead of INFO
	Quiet   bool // ERROR level only
	JSON    bool // JSON encoding instead of console encoding
}

// Init initializes the global logger exactly once at process startup. It is
// safe to call again in tests; the previous logger is replaced.
func Init(opts Options) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	switch {
	case opts.Quiet:
		level = zapcore.ErrorLevel
	case opts.Verbose:
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		// Logger construction failure should never take the process down;
		// fall back to a no-op logger.
		logger = zap.NewNop()
	}
	global = logger.Sugar()
	return global
}

// L returns the process-wide logger, initializing a quiet default if Init
// was never called (e.g. in unit tests that exercise a package directly).
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		mu.Unlock()
		Init(Options{Quiet: true})
		mu.Lock()
	}
	return global
}

// redactedHeaderNames are replaced with the literal "<redacted>" wherever
// they appear in a logged header map.
var redactedHeaderNames = map[string]struct{}{
	"cookie":        {},
	"authorization": {},
	"sap-contextid": {},
	"x-csrf-token":  {},
}

// RedactHeaders returns a copy of headers with sensitive values replaced by
// "<redacted>". Keys are compared case-insensitively; the original map is
// left untouched.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if _, sensitive := redactedHeaderNames[strings.ToLower(k)]; sensitive {
			out[k] = "<redacted>"
			continue
		}
		out[k] = v
	}
	return out
}

// TruncateBody truncates a response body to maxBytes for logging, appending
// a marker when truncation occurred. Bodies >=400 are capped at 2 KiB.
func TruncateBody(body string, maxBytes int) string {
	if len(body) <= maxBytes {
		return body
	}
	return body[:maxBytes] + "...<truncated>"
}
