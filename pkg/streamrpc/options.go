// file: pkg/streamrpc/options.go
package streamrpc

import (
	"github.com/dkoosis/streamrpc/internal/config"
	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/telemetry"
	"github.com/dkoosis/streamrpc/internal/validation"
	"github.com/dkoosis/streamrpc/pkg/streamrpc/formatter"
)

// Option configures a Session at construction time.
type Option func(*Session)

// WithLogger sets the Session's logger, used for the connection-lifecycle
// and dispatch-level diagnostics a host process would otherwise have no
// visibility into.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger.WithField("component", "session")
		}
	}
}

// WithTelemetry attaches a Collector the Session updates as it dispatches
// requests, so a host process can expose it on a diagnostics endpoint.
func WithTelemetry(collector *telemetry.Collector) Option {
	return func(s *Session) { s.telemetry = collector }
}

// WithValidator attaches a ParamsChecker that inbound params are run
// through before reaching a registered target.
func WithValidator(checker validation.ParamsChecker) Option {
	return func(s *Session) { s.checker = checker }
}

// WithScheduler overrides the default GoScheduler, primarily for tests that
// need deterministic, synchronous dispatch.
func WithScheduler(scheduler Scheduler) Option {
	return func(s *Session) { s.scheduler = scheduler }
}

// formatterFor resolves a config.FormatterName to a concrete Formatter.
func formatterFor(name config.FormatterName) formatter.Formatter {
	switch name {
	case config.FormatterMsgPack:
		return formatter.NewMsgPack()
	default:
		return formatter.NewJSON()
	}
}
