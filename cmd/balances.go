package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"fifotax"

	"github.com/google/subcommands"
)

// balancesCmd holds the flags for the 'balances' subcommand.
type balancesCmd struct {
	rates bool
}

func (*balancesCmd) Name() string { return "balances" }
func (*balancesCmd) Synopsis() string {
	return "closing cash balances and open share lots for carry-forward"
}
func (*balancesCmd) Usage() string {
	return `ftx balances [-rates]

  Processes the events file and prints what remains at the end: the EUR
  balance, every dated foreign currency sub-balance, and every open share
  lot. These are the opening positions of the next reporting period.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.rates, "rates", false, "Fetch ECB rates to resolve exchanges with an unknown EUR side")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	events, err := DecodeEvents()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var opts fifotax.Options
	if c.rates {
		rates, err := fifotax.FetchECBHistory(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching exchange rates: %v\n", err)
			return subcommands.ExitFailure
		}
		opts.Rates = rates
	}

	rep, err := fifotax.Process(events, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing events: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(balancesMarkdown(rep))
	return subcommands.ExitSuccess
}

func balancesMarkdown(rep *fifotax.Report) string {
	var b strings.Builder
	b.WriteString("# Closing Balances\n\n")
	fmt.Fprintf(&b, "EUR balance: %s\n\n", rep.EURBalance)

	if len(rep.Positions) > 0 {
		b.WriteString("## Foreign Currency\n\n")
		b.WriteString("| Currency | Acquired | Amount | Tax-free | Source |\n|---|---|---|---|---|\n")
		for _, p := range rep.Positions {
			taxFree := ""
			if p.TaxFree {
				taxFree = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", p.Currency, p.BuyDate, p.Amount, taxFree, p.Source)
		}
		b.WriteString("\n")
	}

	if len(rep.OpenLots) > 0 {
		b.WriteString("## Open Share Lots\n\n")
		b.WriteString("| Symbol | Acquired | Quantity | Unit Cost |\n|---|---|---|---|\n")
		for _, l := range rep.OpenLots {
			sym := l.Symbol
			if l.Variant != fifotax.VariantOpenMarket {
				sym += " (" + string(l.Variant) + ")"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", sym, l.BuyDate, l.Quantity, l.UnitCost)
		}
		b.WriteString("\n")
	}
	return b.String()
}
