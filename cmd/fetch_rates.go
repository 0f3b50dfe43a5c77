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

type fetchRatesCmd struct{}

func (*fetchRatesCmd) Name() string { return "fetch-rates" }
func (*fetchRatesCmd) Synopsis() string {
	return "download the ECB reference rate history and list available currencies"
}
func (*fetchRatesCmd) Usage() string {
	return `ftx fetch-rates

  Downloads the full ECB euro foreign exchange reference rate history and
  prints the available currencies. The download is cached on disk for the
  rest of the day, so subsequent report runs reuse it.
`
}

func (*fetchRatesCmd) SetFlags(f *flag.FlagSet) {}

func (*fetchRatesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rates, err := fifotax.FetchECBHistory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching exchange rates: %v\n", err)
		return subcommands.ExitFailure
	}

	currencies := rates.Currencies()
	fmt.Printf("Fetched ECB reference rates for %d currencies:\n", len(currencies))
	fmt.Println(strings.Join(currencies, " "))
	return subcommands.ExitSuccess
}
