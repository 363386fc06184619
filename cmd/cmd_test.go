package cmd

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// console captures the output of the commands run in a temporary data
// directory, with the offline rate source.
type console struct {
	t      *testing.T
	dir    string
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newConsole(t *testing.T) *console {
	t.Helper()
	c := &console{t: t, dir: t.TempDir()}
	t.Chdir(c.dir)
	t.Setenv("VTH_SOURCES", "stub")
	t.Setenv("VTH_LOG_LEVEL", "error")

	oldDir, oldOut, oldErr, oldInput := *dataDir, stdout, stderr, input
	*dataDir = filepath.Join(c.dir, "data")
	stdout, stderr = &c.out, &c.errOut
	t.Cleanup(func() {
		Close()
		*dataDir, stdout, stderr, input = oldDir, oldOut, oldErr, oldInput
	})
	return c
}

// run executes one command line and returns its output.
func (c *console) run(args ...string) (string, subcommands.ExitStatus) {
	c.t.Helper()
	c.out.Reset()
	c.errOut.Reset()
	status := runLine(context.Background(), args)
	return c.out.String() + c.errOut.String(), status
}

// ok executes one command line that must succeed.
func (c *console) ok(args ...string) string {
	c.t.Helper()
	out, status := c.run(args...)
	require.Equal(c.t, subcommands.ExitSuccess, status, "%v failed:\n%s", args, out)
	return out
}

func TestScenario(t *testing.T) {
	c := newConsole(t)

	out := c.ok("register", "-username", "alice", "-password", "secret")
	assert.Contains(t, out, `User "alice" registered (id=1)`)
	out = c.ok("whoami")
	assert.Contains(t, out, "Not logged in.")
	out = c.ok("login", "-username", "alice", "-password", "secret")
	assert.Contains(t, out, `Logged in as "alice"`)
	out = c.ok("whoami")
	assert.Contains(t, out, `Logged in as "alice" (id=1).`)

	out = c.ok("deposit", "USD", "1000")
	assert.Contains(t, out, "Deposited **1000.00 USD**")

	out = c.ok("update-rates")
	assert.Contains(t, out, "| stub |")
	assert.FileExists(t, filepath.Join(c.dir, "data", "rates.json"))
	assert.FileExists(t, filepath.Join(c.dir, "data", "exchange_rates.json"))

	out = c.ok("buy", "btc", "0.01")
	assert.Contains(t, out, "Bought **0.01000000 BTC** at 60000.00 USD/BTC for $600.00.")
	assert.Contains(t, out, "| USD | 1000.00 | 400.00 |")

	out = c.ok("show-portfolio")
	assert.Contains(t, out, "| BTC | 0.01000000 | 60000.00 | $600.00 |")
	assert.Contains(t, out, "**Total: $1,000.00**")

	out = c.ok("sell", "BTC", "0,005")
	assert.Contains(t, out, "Sold **0.00500000 BTC**")

	out = c.ok("get-rate", "BTC", "EUR")
	assert.Contains(t, out, "1 BTC = **55800.00 EUR**")
	assert.Contains(t, out, "(bridge)")

	out = c.ok("show-rates", "-currency", "eur")
	assert.Contains(t, out, "USD→EUR")
	assert.NotContains(t, out, "ETH→USD")

	out = c.ok("rates-history", "-n", "3")
	assert.Contains(t, out, "Last 3 of 9 entries.")

	out = c.ok("logout")
	assert.Contains(t, out, `Logged out "alice"`)
	out, status := c.run("show-portfolio")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, out, "not logged in")
	out = c.ok("whoami")
	assert.Contains(t, out, "Not logged in.")
}

func TestErrors(t *testing.T) {
	c := newConsole(t)
	c.ok("register", "-username", "bob", "-password", "secret")

	testCases := []struct {
		args   []string
		status subcommands.ExitStatus
		want   string
	}{
		{[]string{"register", "-username", "BOB", "-password", "secret"}, subcommands.ExitFailure, "username already taken"},
		{[]string{"register", "-username", "carol", "-password", "abc"}, subcommands.ExitFailure, "invalid password"},
		{[]string{"login", "-username", "bob", "-password", "wrong"}, subcommands.ExitFailure, "invalid password"},
		{[]string{"login", "-username", "nobody", "-password", "secret"}, subcommands.ExitFailure, "user not found"},
		{[]string{"buy", "BTC", "1"}, subcommands.ExitFailure, "not logged in"},
		{[]string{"buy", "BTC"}, subcommands.ExitUsageError, "expecting <currency> <amount>"},
		{[]string{"get-rate", "XYZ", "USD"}, subcommands.ExitFailure, "XYZ"},
		{[]string{"show-rates", "-currency", "e1"}, subcommands.ExitFailure, "invalid currency code"},
		{[]string{"update-rates", "nope"}, subcommands.ExitFailure, `unknown rate source "nope"`},
		{[]string{"topic", "nope"}, subcommands.ExitFailure, `topic "nope" not found`},
	}
	for _, tc := range testCases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			out, status := c.run(tc.args...)
			assert.Equal(t, tc.status, status)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestTrading(t *testing.T) {
	c := newConsole(t)
	c.ok("register", "-username", "alice", "-password", "secret")
	c.ok("login", "-username", "alice", "-password", "secret")
	c.ok("update-rates", "stub")
	c.ok("deposit", "USD", "100")

	testCases := []struct {
		args []string
		want string
	}{
		{[]string{"buy", "BTC", "1"}, "insufficient funds"},
		{[]string{"sell", "EUR", "10"}, "insufficient funds"},
		{[]string{"buy", "BTC", "0"}, "amount must be a positive number"},
		{[]string{"buy", "BTC", "-1"}, "amount must be a positive number"},
		{[]string{"buy", "BTC", "abc"}, `amount must be a positive number: "abc" is not a number`},
		{[]string{"buy", "USD", "1"}, "currencies must differ"},
	}
	for _, tc := range testCases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			out, status := c.run(tc.args...)
			assert.Equal(t, subcommands.ExitFailure, status)
			assert.Contains(t, out, tc.want)

			out = c.ok("show-portfolio")
			assert.Contains(t, out, "| USD | 100.00 |", "a failed trade must not change the portfolio")
			assert.NotContains(t, out, "| EUR |")
		})
	}
}

func TestChangePassword(t *testing.T) {
	c := newConsole(t)
	c.ok("register", "-username", "alice", "-password", "secret")
	c.ok("login", "-username", "alice", "-password", "secret")

	_, status := c.run("change-password", "-old", "wrong", "-new", "another")
	assert.Equal(t, subcommands.ExitFailure, status)
	c.ok("change-password", "-old", "secret", "-new", "another")

	_, status = c.run("login", "-username", "alice", "-password", "secret")
	assert.Equal(t, subcommands.ExitFailure, status)
	c.ok("login", "-username", "alice", "-password", "another")
}

func TestPasswordFromInput(t *testing.T) {
	if isTerminal(os.Stdin) {
		t.Skip("stdin is a terminal")
	}
	c := newConsole(t)
	input = bufio.NewReader(strings.NewReader("secret\nsecret"))
	c.ok("register", "-username", "alice")
	c.ok("login", "alice")

	_, status := c.run("login", "alice")
	assert.Equal(t, subcommands.ExitFailure, status, "the input is exhausted")
}

func TestShell(t *testing.T) {
	c := newConsole(t)
	c.ok("register", "-username", "alice", "-password", "secret")
	input = bufio.NewReader(strings.NewReader(`login -username alice -password 'secret'
deposit EUR 12.5

show-portfolio -base EUR
buy "BTC
exit
currencies
`))

	status := (&shellCmd{}).Execute(context.Background(), nil)
	assert.Equal(t, subcommands.ExitSuccess, status)
	out := c.out.String()
	assert.Equal(t, 6, strings.Count(out, prompt), "one prompt per line until exit")
	assert.Contains(t, out, `Logged in as "alice"`)
	assert.Contains(t, out, "| EUR | 12.50 |")
	assert.NotContains(t, out, "| BTC |", "the shell stops at exit")
	assert.Contains(t, c.errOut.String(), "unterminated")

	// The session outlives the shell.
	c.ok("show-portfolio")
}

func TestShell_EndOfInput(t *testing.T) {
	c := newConsole(t)
	input = bufio.NewReader(strings.NewReader("currencies"))
	status := (&shellCmd{}).Execute(context.Background(), nil)
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, c.out.String(), "| BTC |")
}

func TestSplitWords(t *testing.T) {
	testCases := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"  \n", nil},
		{"buy BTC 0.01\n", []string{"buy", "BTC", "0.01"}},
		{"login -password 'a b'", []string{"login", "-password", "a b"}},
		{`login -password "it's"`, []string{"login", "-password", "it's"}},
		{`login -password ""`, []string{"login", "-password", ""}},
	}
	for _, tc := range testCases {
		got, err := splitWords(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
	_, err := splitWords(`buy "BTC`)
	assert.Error(t, err)
}

func TestRunExtension(t *testing.T) {
	c := newConsole(t)
	bin := t.TempDir()
	script := "#!/bin/sh\necho \"args=$*\"\necho \"" + EnvDataDir + "=$" + EnvDataDir + "\"\nexit 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "vth-hello"), []byte(script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	found, code := RunExtension("hello", []string{"a", "b"})
	assert.True(t, found)
	assert.Equal(t, 3, code)
	assert.Contains(t, c.out.String(), "args=a b")
	assert.Contains(t, c.out.String(), EnvDataDir+"="+*dataDir)

	found, _ = RunExtension("missing", nil)
	assert.False(t, found)
}

func TestCompletion(t *testing.T) {
	root := Completion()
	var names []string
	c := subcommands.NewCommander(flag.NewFlagSet("vth", flag.ContinueOnError), "vth")
	registerCommands(c)
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		names = append(names, cmd.Name())
	})
	for _, name := range append(names, "shell") {
		assert.Contains(t, root.Sub, name, "command %q has no completion", name)
	}
}
