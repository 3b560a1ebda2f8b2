// Package ledger orchestrates the processing pipeline: it loads the
// directive stream through a data source, sorts it deterministically,
// drives the per-directive processors, and publishes the resulting store
// behind a read-write lock. Readers see a consistent snapshot; a reload
// builds a fresh store and swaps it atomically.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/datasource"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/options"
	"github.com/robinvdvleuten/zhang/store"
	"github.com/robinvdvleuten/zhang/telemetry"
)

// Ledger is the published state of one processed ledger.
type Ledger struct {
	// Entry is the root directory of the ledger source.
	Entry string
	// Endpoint is the primary ledger file relative to Entry.
	Endpoint string

	source *datasource.Source

	// appendMu serialises writers: concurrent appenders queue here, and
	// each append's directives become visible once its reload completes.
	appendMu sync.Mutex

	mu           sync.RWMutex
	store        *store.Store
	options      *options.InMemoryOptions
	visitedFiles []string
	directives   []ast.Spanned

	trxCounter atomic.Int32
}

// Load runs the full load and process pipeline and publishes the result.
func Load(ctx context.Context, entry, endpoint string, source *datasource.Source) (*Ledger, error) {
	l := &Ledger{
		Entry:    entry,
		Endpoint: endpoint,
		source:   source,
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload repeats the pipeline into a fresh store and atomically swaps it
// in. In-flight readers finish against the old snapshot.
func (l *Ledger) Reload(ctx context.Context) error {
	timer := telemetry.FromContext(ctx).Start("ledger.load")
	defer timer.End()

	walkTimer := timer.Child("datasource.walk")
	result, err := l.source.Load(ctx, l.Endpoint)
	walkTimer.End()
	if err != nil {
		return err
	}

	processTimer := timer.Child("ledger.process")
	st, opts, sorted, err := l.process(ctx, result.Directives)
	processTimer.End()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.store = st
	l.options = opts
	l.visitedFiles = result.VisitedFiles
	l.directives = sorted
	l.mu.Unlock()

	log.Debug().
		Int("directives", len(sorted)).
		Int("files", len(result.VisitedFiles)).
		Msg("ledger reloaded")
	return nil
}

// process sorts the stream, injects option defaults and runs every
// directive through its handler into a fresh store.
func (l *Ledger) process(ctx context.Context, directives []ast.Spanned) (*store.Store, *options.InMemoryOptions, []ast.Spanned, error) {
	present := make(map[string]bool)
	for _, spanned := range directives {
		if option, ok := spanned.Directive.(*ast.Option); ok {
			present[option.Key] = true
		}
	}
	stream := append(options.DefaultDirectives(present), directives...)

	// Undated directives (options first among them by injection order) sort
	// ahead of every dated directive, so executing the stream in order is
	// the pre-pass followed by the main pass.
	ast.SortSpanned(stream)

	st := store.New()
	opts := options.Default()

	run := &run{ledger: l, store: st, options: opts}
	l.trxCounter.Store(0)

	for _, spanned := range stream {
		select {
		case <-ctx.Done():
			return nil, nil, nil, ctx.Err()
		default:
		}
		if err := run.handle(spanned.Directive, spanned.Span); err != nil {
			return nil, nil, nil, err
		}
	}

	return st, opts, stream, nil
}

// Operations borrows the store for reading. The release function must be
// called when done; reads hold the read lock for their duration.
func (l *Ledger) Operations() (*operations.Operations, func()) {
	l.mu.RLock()
	return operations.New(l.store, l.options.Timezone), l.mu.RUnlock
}

// Options returns the typed options of the current snapshot.
func (l *Ledger) Options() *options.InMemoryOptions {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.options
}

// Directives returns the processed, sorted directive stream of the current
// snapshot. The slice is shared; callers must not mutate it.
func (l *Ledger) Directives() []ast.Spanned {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.directives
}

// VisitedFiles returns the files of the last load.
func (l *Ledger) VisitedFiles() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visitedFiles
}

// Append writes new directives into the source files and reloads so they
// become visible. Appenders are serialised by the ledger's append mutex;
// the new directives are visible only after the reload completes.
func (l *Ledger) Append(ctx context.Context, directives []ast.Directive) error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	l.mu.RLock()
	opts := datasource.AppendOptions{
		Endpoint:            l.Endpoint,
		VisitedFiles:        l.visitedFiles,
		DirectiveOutputPath: l.options.DirectiveOutputPath,
	}
	l.mu.RUnlock()

	if err := l.source.Append(ctx, opts, directives); err != nil {
		return fmt.Errorf("failed to append directives: %w", err)
	}
	return l.Reload(ctx)
}
