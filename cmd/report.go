package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fifotax"

	"github.com/google/subcommands"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	year    int
	mode    string
	outFile string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "yearly tax report with all figures converted to EUR" }
func (*reportCmd) Usage() string {
	return `ftx report [-year <year>] [-mode <daily|monthly>] [-o <file>]

  Processes the events file and prints the tax report of one calendar year:
  FIFO-matched share gains, speculative foreign currency gains, dividends,
  compensation benefits, fees and withheld taxes, all converted to EUR at
  ECB reference rates. With -o, the full report (matched pairs, flows,
  closing balances) is additionally written as JSON.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year()-1, "Tax year to report on")
	f.StringVar(&c.mode, "mode", "daily", "Rate mode: daily rates or monthly averages")
	f.StringVar(&c.outFile, "o", "", "Write the full report as JSON to this file")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mode, err := fifotax.ParseRateMode(c.mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	events, err := DecodeEvents()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	rates, err := fifotax.FetchECBHistory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching exchange rates: %v\n", err)
		return subcommands.ExitFailure
	}

	rep, err := fifotax.Process(events, fifotax.Options{Rates: rates})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing events: %v\n", err)
		return subcommands.ExitFailure
	}

	tax, err := rep.TaxReport(c.year, mode, rates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing tax report: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.outFile != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.outFile, append(data, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(tax.MarkdownSummary())
	return subcommands.ExitSuccess
}
