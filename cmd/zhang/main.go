package main

import (
	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/zhang/cli"
	_ "github.com/robinvdvleuten/zhang/codec/beancount"
	_ "github.com/robinvdvleuten/zhang/codec/text"
)

var (
	// Version contains the application version number. It's set via
	// ldflags when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was
	// built against. It's set via ldflags when building.
	CommitSHA = ""
)

func main() {
	cli.Version = Version
	cli.CommitSHA = CommitSHA

	var commands cli.Commands
	ctx := kong.Parse(&commands,
		kong.Name("zhang"),
		kong.Description("A plain-text double-entry accounting engine."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)
	ctx.FatalIfErrorf(ctx.Run())
}
