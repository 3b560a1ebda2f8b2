package cli

import (
	"context"
	"os"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/codec/beancount"
	"github.com/robinvdvleuten/zhang/codec/text"
	"github.com/robinvdvleuten/zhang/ledger"
)

// ExportCmd re-renders the loaded directive stream in a dialect.
type ExportCmd struct {
	sourceFlags
	Exporter string `help:"Target dialect." enum:"Text,Beancount" default:"Text"`
}

func (c *ExportCmd) Run() error {
	ctx := context.Background()

	source, err := c.newDataSource(ctx)
	if err != nil {
		return err
	}

	l, err := ledger.Load(ctx, c.Path, c.Endpoint, source)
	if err != nil {
		printError(os.Stderr, err.Error())
		return err
	}

	var exporter interface{ Export(ast.Directive) []byte }
	if c.Exporter == "Beancount" {
		exporter = &beancount.DataType{}
	} else {
		exporter = &text.DataType{}
	}

	for _, spanned := range l.Directives() {
		// Skip the injected option defaults; only user content exports.
		if spanned.Span.IsZero() {
			continue
		}
		if _, err := os.Stdout.Write(append(exporter.Export(spanned.Directive), '\n')); err != nil {
			return err
		}
	}
	return nil
}
