package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/provider"
	"github.com/etnz/valutatrade/rates"
	"github.com/etnz/valutatrade/renderer"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type getRateCmd struct{}

func (*getRateCmd) Name() string     { return "get-rate" }
func (*getRateCmd) Synopsis() string { return "display the exchange rate between two currencies" }
func (*getRateCmd) Usage() string {
	return `vth get-rate <from> <to>

  Displays how much 1 <from> is worth in <to>. Rates older than the
  configured TTL are refreshed from the sources first.
`
}

func (*getRateCmd) SetFlags(*flag.FlagSet) {}

func (*getRateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "Error: expecting <from> <to>")
	}
	from, err := valutatrade.LookupCurrency(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	to, err := valutatrade.LookupCurrency(f.Arg(1))
	if err != nil {
		return fail(err)
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	q, err := a.cache.Rate(ctx, from.Code, to.Code)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderQuote(renderer.Quote{Quote: q, From: from, To: to, TTL: a.cache.TTL()}))
	return subcommands.ExitSuccess
}

type updateRatesCmd struct{}

func (*updateRatesCmd) Name() string     { return "update-rates" }
func (*updateRatesCmd) Synopsis() string { return "fetch the current rates from the sources" }
func (*updateRatesCmd) Usage() string {
	return `vth update-rates [source...]

  Fetches the rates from the given sources, or the configured ones, and
  replaces the rate store. Sources are: coingecko, exchangerate, lstc, stub.
`
}

func (*updateRatesCmd) SetFlags(*flag.FlagSet) {}

func (*updateRatesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	fetcher := a.fetcher
	if f.NArg() > 0 {
		sources, err := provider.FromConfig(a.cfg, a.client, f.Args()...)
		if err != nil {
			return fail(err)
		}
		fetcher = rates.NewFetcher(a.rates, a.history, a.log, sources...)
	}
	b, err := fetcher.Refresh(ctx)
	if errors.Is(err, valutatrade.ErrAllSourcesUnavailable) {
		// Show which sources failed before the error.
		printMarkdown(renderer.RenderRefresh(renderer.Refresh{Batch: b}, fetcher.Sources()))
	}
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderRefresh(renderer.Refresh{Batch: b, File: a.rates.Path()}, fetcher.Sources()))
	return subcommands.ExitSuccess
}

type showRatesCmd struct {
	currency string
	top      int
}

func (*showRatesCmd) Name() string     { return "show-rates" }
func (*showRatesCmd) Synopsis() string { return "display the rate store" }
func (*showRatesCmd) Usage() string {
	return `vth show-rates [-currency <code>] [-top <n>]

  Displays the stored rates without refreshing them.
`
}

func (c *showRatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Only show the pairs involving this currency.")
	f.IntVar(&c.top, "top", 0, "Only show the n highest rates.")
}

func (c *showRatesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.top < 0 {
		return usage(f, "Error: -top must not be negative")
	}
	if c.currency != "" {
		if err := valutatrade.ValidateCode(valutatrade.NormalizeCode(c.currency)); err != nil {
			return fail(err)
		}
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	snap, err := a.rates.Load()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderRates(renderer.NewRates(snap, time.Now(), a.cache.TTL(), c.currency, c.top)))
	return subcommands.ExitSuccess
}

type ratesHistoryCmd struct {
	n int
}

func (*ratesHistoryCmd) Name() string     { return "rates-history" }
func (*ratesHistoryCmd) Synopsis() string { return "display the last fetched rates" }
func (*ratesHistoryCmd) Usage() string {
	return `vth rates-history [-n <count>]
`
}

func (c *ratesHistoryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 20, "Number of entries to show.")
}

func (c *ratesHistoryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.n <= 0 {
		return usage(f, "Error: -n must be positive")
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	all, err := a.history.Entries()
	if err != nil {
		return fail(err)
	}
	tail, err := a.history.Tail(c.n)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderHistory(tail, len(all)))
	return subcommands.ExitSuccess
}

type currenciesCmd struct{}

func (*currenciesCmd) Name() string     { return "currencies" }
func (*currenciesCmd) Synopsis() string { return "list the supported currencies" }
func (*currenciesCmd) Usage() string {
	return `vth currencies
`
}

func (*currenciesCmd) SetFlags(*flag.FlagSet) {}

func (*currenciesCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	printMarkdown(renderer.RenderCurrencies())
	return subcommands.ExitSuccess
}

type scheduleCmd struct {
	every time.Duration
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "refresh the rates periodically" }
func (*scheduleCmd) Usage() string {
	return `vth schedule [-every <duration>]

  Refreshes the rates now, then at every interval until interrupted.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.every, "every", 0, "Interval between refreshes. Defaults to the configured one.")
}

func (c *scheduleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	every := c.every
	if every == 0 {
		every = a.cfg.ScheduleEvery
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := rates.NewScheduler(a.fetcher, every, a.log)
	if err := s.Start(ctx); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Refreshing rates every %v, press Ctrl+C to stop.\n", every)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return fail(err)
	}
	a.log.Info("schedule stopped", zap.Int("runs", s.Runs()))
	fmt.Fprintf(stdout, "Stopped after %d refreshes.\n", s.Runs())
	return subcommands.ExitSuccess
}
