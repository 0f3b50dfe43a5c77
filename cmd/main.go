package cmd

import (
	"flag"
	"fmt"
	"os"

	"fifotax"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&reportCmd{}, "reports")
	c.Register(&awvCmd{}, "reports")
	c.Register(&balancesCmd{}, "reports")

	c.Register(&fmtCmd{}, "events")

	c.Register(&fetchRatesCmd{}, "rates")
}

var eventsFile = flag.String("events-file", "events.jsonl", "Path to the normalized events file (JSONL format)")
var verbose = flag.Bool("v", false, "Enable debug logging")

// Setup configures logging from the global flags. Call it after flag.Parse.
func Setup() {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(w).Level(zerolog.WarnLevel)
	if *verbose {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
}

// DecodeEvents reads the events file named by the -events-file flag.
func DecodeEvents() ([]fifotax.Event, error) {
	f, err := os.Open(*eventsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open events file: %w", err)
	}
	defer f.Close()
	events, err := fifotax.DecodeEvents(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %q: %w", *eventsFile, err)
	}
	log.Debug().Int("events", len(events)).Str("file", *eventsFile).Msg("events loaded")
	return events, nil
}
