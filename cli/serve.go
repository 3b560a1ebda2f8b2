package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/ledger"
	"github.com/robinvdvleuten/zhang/server"
)

// ServeCmd loads the ledger and serves the HTTP API.
type ServeCmd struct {
	sourceFlags
	Addr     string `help:"Address to bind." default:"0.0.0.0"`
	Port     int    `help:"Port to bind." default:"8000"`
	Auth     string `help:"Basic auth credential as user:password." env:"ZHANG_AUTH"`
	NoReport bool   `help:"Disable the startup report line."`
	SQL      bool   `help:"Expose the ad-hoc SQL query endpoint."`
	Watch    bool   `help:"Reload when source files change." default:"true" negatable:""`
}

func (c *ServeCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := c.newDataSource(ctx)
	if err != nil {
		return err
	}

	l, err := ledger.Load(ctx, c.Path, c.Endpoint, source)
	if err != nil {
		printError(os.Stderr, err.Error())
		return err
	}

	if !c.NoReport {
		ops, release := l.Operations()
		printInfof(os.Stdout, "loaded %d transactions, %d error(s)",
			ops.TransactionCounts(), len(ops.Errors()))
		release()
	}

	s := server.New(l, c.Addr, c.Port)
	s.Auth = c.Auth
	s.EnableSQL = c.SQL
	s.Version = Version

	if err := s.Start(ctx, c.Watch); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}
