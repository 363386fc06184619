// Package cmd implements the vth command line application.
package cmd

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/valutatrade/account"
	"github.com/etnz/valutatrade/config"
	"github.com/etnz/valutatrade/provider"
	"github.com/etnz/valutatrade/rates"
	"github.com/etnz/valutatrade/trade"
	"github.com/google/subcommands"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	registerCommands(c)
	c.Register(&shellCmd{}, "")
}

// registerCommands registers every command that the shell can run.
func registerCommands(c *subcommands.Commander) {
	c.Register(&registerCmd{}, "account")
	c.Register(&loginCmd{}, "account")
	c.Register(&logoutCmd{}, "account")
	c.Register(&whoamiCmd{}, "account")
	c.Register(&changePasswordCmd{}, "account")

	c.Register(&showPortfolioCmd{}, "portfolio")
	c.Register(&depositCmd{}, "portfolio")
	c.Register(&buyCmd{}, "portfolio")
	c.Register(&sellCmd{}, "portfolio")

	c.Register(&getRateCmd{}, "rates")
	c.Register(&updateRatesCmd{}, "rates")
	c.Register(&showRatesCmd{}, "rates")
	c.Register(&ratesHistoryCmd{}, "rates")
	c.Register(&currenciesCmd{}, "rates")
	c.Register(&scheduleCmd{}, "rates")

	c.Register(&topicCmd{}, "")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "", "Path to a configuration file (JSON, TOML or YAML).")
	dataDir    = flag.String("data-dir", "", "Directory of the data files. Overrides the configuration.")
	Verbose    = flag.Bool("v", false, "Log debug information on stderr.")
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	// input is shared by the shell and the password prompts.
	input = bufio.NewReader(os.Stdin)
)

// app holds the services of the current invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	rates   *rates.Store
	history *rates.History
	client  *provider.Client
	fetcher *rates.Fetcher
	cache   *rates.Cache
	auth    *account.Auth
	engine  *trade.Engine
}

// current is opened by the first command that needs it, and reused by the
// following ones in the shell.
var current *app

// open returns the application services, built from the configuration.
func open() (*app, error) {
	if current != nil {
		return current, nil
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *Verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger}
	a.rates = rates.NewStore(cfg.RatesFile(), logger)
	a.history = rates.NewHistory(cfg.HistoryFile(), cfg.HistoryMaxEntries)
	a.client = provider.NewClientFromConfig(cfg, logger)
	sources, err := provider.FromConfig(cfg, a.client)
	if err != nil {
		return nil, err
	}
	a.fetcher = rates.NewFetcher(a.rates, a.history, logger, sources...)
	a.cache = rates.NewCache(a.rates, a.fetcher, cfg.RatesTTL, logger)

	portfolios := account.NewPortfolios(cfg.PortfoliosFile())
	a.auth = account.NewAuth(account.NewUsers(cfg.UsersFile()), portfolios, account.NewSessions(cfg.SessionFile()), cfg.PasswordMinLength, logger)
	a.engine = trade.NewEngine(a.cache, portfolios, cfg.SettlementCurrency, logger)

	logger.Debug("application opened", zap.String("data_dir", cfg.DataDir), zap.Strings("sources", a.fetcher.Sources()))
	current = a
	return a, nil
}

// Close flushes the logger of the current application, if any.
func Close() {
	if current != nil {
		_ = current.log.Sync()
		current = nil
	}
}

// fail prints err and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(stderr, "Error:", err)
	return subcommands.ExitFailure
}

// usage prints a usage error for the command.
func usage(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(stderr, format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

// isTerminal returns true if w is a terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printMarkdown prints md, rendered for the terminal when stdout is one.
func printMarkdown(md string) {
	if isTerminal(stdout) {
		width := 100
		if w, _, err := term.GetSize(int(stdout.(*os.File).Fd())); err == nil && w > 0 {
			width = w
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(stdout, out)
				return
			}
		}
	}
	fmt.Fprintln(stdout, md)
}
