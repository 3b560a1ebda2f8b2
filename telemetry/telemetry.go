// Package telemetry provides hierarchical timing collection for the load
// pipeline. Collectors travel through context so instrumentation stays
// non-intrusive: code asks the context for a collector and gets a no-op
// when none was installed.
//
// Example usage:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.FromContext(ctx).Start("ledger.load")
//	child := timer.Child("datasource.walk")
//	// ... work ...
//	child.End()
//	timer.End()
//
//	collector.Report(os.Stderr)
package telemetry

import (
	"context"
	"io"
)

type contextKey int

const collectorKey contextKey = iota

// Collector collects timer trees. Implementations must be safe for
// concurrent Start calls; individual timers are single-goroutine.
type Collector interface {
	// Start begins timing an operation; End must be called when it
	// completes.
	Start(name string) Timer

	// Report writes the collected timings.
	Report(w io.Writer)
}

// Timer tracks one operation. Child creates a nested timer; a timer and
// its children belong to a single goroutine.
type Timer interface {
	End()
	Child(name string) Timer
}

// WithCollector installs a collector into a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector, or a no-op when none is installed.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noopCollector{}
}

// noopCollector provides zero overhead when telemetry is disabled.
type noopCollector struct{}

func (noopCollector) Start(name string) Timer { return noopTimer{} }
func (noopCollector) Report(w io.Writer)      {}

type noopTimer struct{}

func (noopTimer) End()                    {}
func (noopTimer) Child(name string) Timer { return noopTimer{} }
