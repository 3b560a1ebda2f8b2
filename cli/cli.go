// Package cli implements the command-line surface: parse, serve, export
// and update.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/datasource"
)

// Version and CommitSHA are set via ldflags when building.
var (
	Version   = ""
	CommitSHA = ""
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), message)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(message))
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

// Commands is the root command tree, parsed by kong.
type Commands struct {
	Parse  ParseCmd  `cmd:"" help:"Load a ledger and report its errors."`
	Serve  ServeCmd  `cmd:"" help:"Load a ledger and serve the HTTP API."`
	Export ExportCmd `cmd:"" help:"Re-render the loaded directives in a dialect."`
	Update UpdateCmd `cmd:"" help:"Check for and install a newer release."`

	Log string `help:"Log level filter." env:"ZHANG_LOG" default:"info"`
}

// AfterApply configures global logging before any command runs.
func (c *Commands) AfterApply() error {
	level, err := zerolog.ParseLevel(c.Log)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return nil
}

// sourceFlags selects and configures the storage backend shared by the
// ledger commands.
type sourceFlags struct {
	Path     string `arg:"" help:"Root directory of the ledger." type:"path"`
	Endpoint string `help:"Primary ledger file relative to the root." default:"main.zhang"`
	Source   string `help:"Storage backend." enum:"fs,web-dav,github" default:"fs"`

	WebdavEndpoint string `help:"WebDAV endpoint URL." env:"ZHANG_WEBDAV_ENDPOINT" hidden:""`
	WebdavRoot     string `help:"WebDAV root path." env:"ZHANG_WEBDAV_ROOT" hidden:""`
	WebdavUsername string `help:"WebDAV username." env:"ZHANG_WEBDAV_USERNAME" hidden:""`
	WebdavPassword string `help:"WebDAV password." env:"ZHANG_WEBDAV_PASSWORD" hidden:""`

	GithubToken string `help:"GitHub access token." env:"ZHANG_GITHUB_TOKEN" hidden:""`
	GithubUser  string `help:"GitHub repository owner." env:"ZHANG_GITHUB_USER" hidden:""`
	GithubRepo  string `help:"GitHub repository name." env:"ZHANG_GITHUB_REPO" hidden:""`
}

// newDataSource builds the data source for the selected backend.
func (f *sourceFlags) newDataSource(ctx context.Context) (*datasource.Source, error) {
	var operator datasource.Operator
	switch f.Source {
	case "web-dav":
		if f.WebdavEndpoint == "" {
			return nil, fmt.Errorf("ZHANG_WEBDAV_ENDPOINT must be set for the web-dav source")
		}
		operator = datasource.NewWebdavOperator(datasource.WebdavConfig{
			Endpoint: f.WebdavEndpoint,
			Root:     f.WebdavRoot,
			Username: f.WebdavUsername,
			Password: f.WebdavPassword,
		})
	case "github":
		if f.GithubToken == "" || f.GithubUser == "" || f.GithubRepo == "" {
			return nil, fmt.Errorf("ZHANG_GITHUB_TOKEN, ZHANG_GITHUB_USER and ZHANG_GITHUB_REPO must be set for the github source")
		}
		operator = datasource.NewGithubOperator(ctx, datasource.GithubConfig{
			Token: f.GithubToken,
			Owner: f.GithubUser,
			Repo:  f.GithubRepo,
		})
	default:
		operator = datasource.NewFsOperator(f.Path)
	}
	return datasource.New(operator, f.Endpoint)
}

func isTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
