package profiler

import (
	"log/slog"
	"time"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithInterval is an option builder that sets how often Tick reports.
//
// Parameters:
//   - interval: the reporting interval; non-positive values keep the default
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a Profiler
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithLogger is an option builder that sets the structured logger reports are written to.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger option to a Profiler
func WithLogger(logger *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// withClock replaces the time source.
func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
