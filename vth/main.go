// Command vth is a currency portfolio simulator.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/valutatrade/cmd"
	"github.com/google/subcommands"
)

func main() {
	// Answers shell completion requests, and exits, when run by the shell.
	cmd.Completion().Complete("vth")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()

	if name := flag.Arg(0); name != "" && !isCommand(commander, name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}

	status := commander.Execute(context.Background())
	cmd.Close()
	os.Exit(int(status))
}

// isCommand returns true if name is registered in c.
func isCommand(c *subcommands.Commander, name string) bool {
	found := false
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		if cmd.Name() == name {
			found = true
		}
	})
	return found
}
