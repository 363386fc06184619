package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/subcommands"
)

// prompt is printed before each shell command.
const prompt = "vth> "

type shellCmd struct{}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "run commands interactively" }
func (*shellCmd) Usage() string {
	return `vth shell

  Reads commands from the input, one per line, until "exit" or end of input.
  Commands are the same as on the command line, without the "vth" prefix, and
  share the session: a login in the shell lasts after it.
`
}

func (*shellCmd) SetFlags(*flag.FlagSet) {}

func (*shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Fprintln(stdout, `Type "help" for the list of commands, "exit" to quit.`)
	for ctx.Err() == nil {
		fmt.Fprint(stdout, prompt)
		line, err := input.ReadString('\n')
		if words, perr := splitWords(line); perr != nil {
			fmt.Fprintln(stderr, "Error:", perr)
		} else if len(words) > 0 {
			if words[0] == "exit" || words[0] == "quit" {
				return subcommands.ExitSuccess
			}
			runLine(ctx, words)
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(stdout)
			return subcommands.ExitSuccess
		}
		if err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}

// runLine executes one shell command with its own commander.
func runLine(ctx context.Context, words []string) subcommands.ExitStatus {
	top := flag.NewFlagSet("vth", flag.ContinueOnError)
	top.SetOutput(stderr)
	if err := top.Parse(words); err != nil {
		return subcommands.ExitUsageError
	}
	c := subcommands.NewCommander(top, "vth")
	c.Output, c.Error = stdout, stderr
	c.Register(c.HelpCommand(), "")
	c.Register(c.CommandsCommand(), "")
	registerCommands(c)
	return c.Execute(ctx)
}

// splitWords splits line on blanks. Single or double quotes group words.
func splitWords(line string) ([]string, error) {
	var (
		words []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote, inArg = r, true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				words = append(words, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		words = append(words, cur.String())
	}
	return words, nil
}
