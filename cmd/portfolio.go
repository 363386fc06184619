package cmd

import (
	"context"
	"flag"
	"strings"

	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/renderer"
	"github.com/etnz/valutatrade/trade"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type showPortfolioCmd struct {
	base string
}

func (*showPortfolioCmd) Name() string     { return "show-portfolio" }
func (*showPortfolioCmd) Synopsis() string { return "display the wallets of the current user" }
func (*showPortfolioCmd) Usage() string {
	return `vth show-portfolio [-base <currency>]

  Displays every wallet with its value in the base currency and the total.
  Wallets without a rate to the base currency are left out of the total.
`
}

func (c *showPortfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.base, "base", "", "Currency of the valuation. Defaults to the configured base currency.")
}

func (c *showPortfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open()
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Current()
	if err != nil {
		return fail(err)
	}
	base := c.base
	if base == "" {
		base = a.cfg.BaseCurrency
	}
	v, err := a.engine.Valuate(ctx, sess, base)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderPortfolio(sess.Username, v))
	return subcommands.ExitSuccess
}

// operationArgs parses the "<currency> <amount>" arguments.
//
// Numbers that are not positive are left to the engine, so that the error
// is reported like the other ones.
func operationArgs(f *flag.FlagSet) (string, decimal.Decimal, error) {
	amount, err := valutatrade.ParseAmount(f.Arg(1))
	if err != nil {
		if n, nerr := decimal.NewFromString(strings.ReplaceAll(f.Arg(1), ",", ".")); nerr == nil {
			return f.Arg(0), n, nil
		}
		return "", decimal.Zero, err
	}
	return f.Arg(0), amount, nil
}

// operation runs one of the engine operations for the current user.
type operation func(e *trade.Engine, ctx context.Context, sess valutatrade.Session, code string, amount decimal.Decimal) (*trade.Receipt, error)

func runOperation(ctx context.Context, f *flag.FlagSet, op operation) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "Error: expecting <currency> <amount>")
	}
	code, amount, err := operationArgs(f)
	if err != nil {
		return fail(err)
	}
	a, err := open()
	if err != nil {
		return fail(err)
	}
	sess, err := a.auth.Current()
	if err != nil {
		return fail(err)
	}
	r, err := op(a.engine, ctx, sess, code, amount)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RenderReceipt(r))
	return subcommands.ExitSuccess
}

type depositCmd struct{}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add funds to a wallet" }
func (*depositCmd) Usage() string {
	return `vth deposit <currency> <amount>

  Credits the wallet of the currency, created if needed.
`
}

func (*depositCmd) SetFlags(*flag.FlagSet) {}

func (*depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runOperation(ctx, f, (*trade.Engine).Deposit)
}

type buyCmd struct{}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy a currency with the settlement currency" }
func (*buyCmd) Usage() string {
	return `vth buy <currency> <amount>

  Buys amount of currency, paid from the settlement currency wallet (USD by
  default) at the current rate.
`
}

func (*buyCmd) SetFlags(*flag.FlagSet) {}

func (*buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runOperation(ctx, f, (*trade.Engine).Buy)
}

type sellCmd struct{}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell a currency for the settlement currency" }
func (*sellCmd) Usage() string {
	return `vth sell <currency> <amount>

  Sells amount of currency, credited to the settlement currency wallet at the
  current rate.
`
}

func (*sellCmd) SetFlags(*flag.FlagSet) {}

func (*sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runOperation(ctx, f, (*trade.Engine).Sell)
}
