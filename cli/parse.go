package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/robinvdvleuten/zhang/ledger"
	"github.com/robinvdvleuten/zhang/telemetry"
)

// ParseCmd loads the ledger once and reports its errors.
type ParseCmd struct {
	sourceFlags
	Verbose bool `short:"v" help:"Print load timing."`
}

func (c *ParseCmd) Run() error {
	ctx := context.Background()

	var collector *telemetry.TimingCollector
	if c.Verbose {
		collector = telemetry.NewTimingCollector()
		ctx = telemetry.WithCollector(ctx, collector)
	}

	source, err := c.newDataSource(ctx)
	if err != nil {
		return err
	}

	l, err := ledger.Load(ctx, c.Path, c.Endpoint, source)
	if err != nil {
		printError(os.Stderr, err.Error())
		return fmt.Errorf("failed to load ledger")
	}

	ops, release := l.Operations()
	defer release()

	printInfof(os.Stdout, "loaded %d transactions from %d files",
		ops.TransactionCounts(), len(l.VisitedFiles()))

	errors := ops.Errors()
	if len(errors) == 0 {
		printSuccess(os.Stdout, "no errors found")
	} else {
		for _, line := range formatErrors(errors) {
			printError(os.Stdout, line)
		}
		printInfof(os.Stdout, "%d error(s) found", len(errors))
	}

	if collector != nil {
		collector.Report(os.Stderr)
	}
	return nil
}
