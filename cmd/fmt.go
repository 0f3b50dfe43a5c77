package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fifotax"

	"github.com/google/subcommands"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the events file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `ftx fmt

  Validates and formats the events file. This command reads all events,
  validates them, sorts them into total processing order, and writes them
  back in a canonical JSONL format.
`
}

func (*fmtCmd) SetFlags(f *flag.FlagSet) {}

func (p *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	events, err := DecodeEvents()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	for _, e := range events {
		if err := e.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid %s event on %s: %v\n", e.What(), e.When(), err)
			return subcommands.ExitFailure
		}
	}

	tmp := *eventsFile + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing events file: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := fifotax.EncodeEvents(out, events); err != nil {
		out.Close()
		os.Remove(tmp)
		fmt.Fprintf(os.Stderr, "Error writing events file: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		fmt.Fprintf(os.Stderr, "Error writing events file: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := os.Rename(tmp, *eventsFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error replacing events file: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Formatted %d events.\n", len(events))
	return subcommands.ExitSuccess
}
