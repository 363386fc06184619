package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/valutatrade/docs"
	"github.com/google/subcommands"
)

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `vth topic [<topic>...]

  Shows documentation for the given topics, or the list of topics. '*' shows
  them all.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}

	doc, err := docs.GetTopics(topics...)
	if err != nil {
		return fail(err)
	}
	printMarkdown(strings.TrimSpace(doc))
	return subcommands.ExitSuccess
}

// topicNames returns the topics, for completion.
func topicNames() []string {
	topics, err := docs.GetAllTopics()
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return topics
}
