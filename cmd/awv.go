package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fifotax"

	"github.com/google/subcommands"
)

// awvCmd holds the flags for the 'awv' subcommand.
type awvCmd struct {
	year      int
	threshold float64
}

func (*awvCmd) Name() string { return "awv" }
func (*awvCmd) Synopsis() string {
	return "list transactions that must be reported to the Bundesbank (AWV)"
}
func (*awvCmd) Usage() string {
	return `ftx awv [-year <year>] [-threshold <eur>]

  Scans the events file for cross-border transactions whose EUR value
  reaches the AWV reporting threshold and prints them grouped by report
  sheet (Z4 capital flows, Z10 securities). The actual filing with the
  Bundesbank stays with you.
`
}

func (c *awvCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year()-1, "Calendar year to scan, 0 for all years")
	f.Float64Var(&c.threshold, "threshold", 0, "Reporting threshold in EUR, 0 for the statutory 12500")
}

func (c *awvCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	threshold := fifotax.Money{}
	if c.threshold > 0 {
		threshold = fifotax.M(c.threshold, fifotax.EUR)
	}
	flags, err := fifotax.DetectAWV(rep.AWVEntries, rates, c.year, threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting reportable transactions: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(awvMarkdown(c.year, flags))
	return subcommands.ExitSuccess
}

func awvMarkdown(year int, flags []fifotax.AWVFlag) string {
	var b strings.Builder
	if year == 0 {
		b.WriteString("# AWV Reportable Transactions\n\n")
	} else {
		fmt.Fprintf(&b, "# AWV Reportable Transactions %d\n\n", year)
	}
	if len(flags) == 0 {
		b.WriteString("Nothing to report.\n")
		return b.String()
	}

	for _, category := range []fifotax.AWVCategory{fifotax.AWVZ4, fifotax.AWVZ10} {
		var section []fifotax.AWVFlag
		for _, fl := range flags {
			if fl.Category == category {
				section = append(section, fl)
			}
		}
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Meldung %s\n\n", category)
		b.WriteString("| Date | Purpose | Direction | Value | EUR |\n|---|---|---|---|---|\n")
		for _, fl := range section {
			direction := "outgoing"
			if fl.Incoming {
				direction = "incoming"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				fl.Date, fl.Purpose, direction, fl.Value, fl.ValueEUR.Amount().StringFixed(2))
		}
		b.WriteString("\n")
	}
	return b.String()
}
