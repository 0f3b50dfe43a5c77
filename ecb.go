package fifotax

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ECBHistoryURL is the ECB's full euro foreign exchange reference rate
// history, a zip archive holding a single CSV file.
const ECBHistoryURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"

// maxRateGapDays bounds the forward search for the next published rate. ECB
// reference rates skip weekends and TARGET holidays; a gap longer than this
// means the currency genuinely has no rate around that date.
const maxRateGapDays = 7

// ECBRates resolves historical rates from the ECB reference rate history.
// Daily lookups fall back to the next published rate within maxRateGapDays,
// so weekend-dated events resolve at the following business day's rate.
// Monthly averages are computed over the published days of the month and
// memoized. Safe for concurrent use.
type ECBRates struct {
	daily map[string]map[Date]decimal.Decimal

	mu      sync.Mutex
	monthly map[string]map[YearMonth]decimal.Decimal
}

var _ RateResolver = (*ECBRates)(nil)

// NewECBRates builds a resolver from explicit per-currency daily tables.
// Mostly useful for tests; production data comes from ParseECBHistory or
// FetchECBHistory.
func NewECBRates(daily map[string]map[Date]decimal.Decimal) *ECBRates {
	return &ECBRates{
		daily:   daily,
		monthly: make(map[string]map[YearMonth]decimal.Decimal),
	}
}

// ParseECBHistory reads the eurofxref-hist CSV format: a header line
// "Date,USD,JPY,..." followed by one row per TARGET business day, newest
// first. Missing quotes are "N/A".
func ParseECBHistory(r io.Reader) (*ECBRates, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // some exports carry a trailing empty column

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading rate history header: %w", err)
	}
	if len(header) < 2 || header[0] != "Date" {
		return nil, fmt.Errorf("unexpected rate history header %q", header)
	}

	daily := make(map[string]map[Date]decimal.Decimal, len(header)-1)
	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rate history row: %w", err)
		}
		on, err := ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("reading rate history row: %w", err)
		}
		for i := 1; i < len(rec) && i < len(header); i++ {
			cell := rec[i]
			if cell == "" || cell == "N/A" {
				continue
			}
			rate, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, fmt.Errorf("bad %s rate on %s: %w", header[i], on, err)
			}
			table, ok := daily[header[i]]
			if !ok {
				table = make(map[Date]decimal.Decimal)
				daily[header[i]] = table
			}
			table[on] = rate
		}
		rows++
	}

	log.Debug().Int("days", rows).Int("currencies", len(daily)).Msg("parsed rate history")
	return NewECBRates(daily), nil
}

// FetchECBHistory downloads and parses the full rate history. Responses are
// cached on disk with daily expiry, so repeated runs on the same day hit the
// network once.
func FetchECBHistory(ctx context.Context) (*ECBRates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ECBHistoryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := daily().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rate history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v/%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching rate history: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("opening rate history archive: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("rate history archive is empty")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("opening rate history archive: %w", err)
	}
	defer f.Close()
	return ParseECBHistory(f)
}

// Rate implements RateResolver.
func (e *ECBRates) Rate(currency string, on Date, mode RateMode) (decimal.Decimal, error) {
	if currency == EUR {
		return decimal.NewFromInt(1), nil
	}
	if mode == RateMonthlyAverage {
		return e.monthlyAverage(currency, YearMonth{on.Year(), int(on.Month())})
	}
	return e.dailyRate(currency, on)
}

func (e *ECBRates) dailyRate(currency string, on Date) (decimal.Decimal, error) {
	table, ok := e.daily[currency]
	if !ok {
		return decimal.Decimal{}, &MissingRateError{Currency: currency, On: on}
	}
	for gap := 0; gap <= maxRateGapDays; gap++ {
		if rate, ok := table[on.Add(gap)]; ok {
			return rate, nil
		}
	}
	return decimal.Decimal{}, &MissingRateError{Currency: currency, On: on}
}

func (e *ECBRates) monthlyAverage(currency string, ym YearMonth) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.monthly[currency][ym]; ok {
		return cached, nil
	}
	table, ok := e.daily[currency]
	if !ok {
		return decimal.Decimal{}, &MissingRateError{Currency: currency, On: NewDate(ym.Year, time.Month(ym.Month), 1)}
	}

	sum := decimal.Zero
	n := 0
	for on, rate := range table {
		if on.Year() == ym.Year && int(on.Month()) == ym.Month {
			sum = sum.Add(rate)
			n++
		}
	}
	if n == 0 {
		return decimal.Decimal{}, &MissingRateError{Currency: currency, On: NewDate(ym.Year, time.Month(ym.Month), 1)}
	}
	avg := sum.Div(decimal.NewFromInt(int64(n)))

	if e.monthly[currency] == nil {
		e.monthly[currency] = make(map[YearMonth]decimal.Decimal)
	}
	e.monthly[currency][ym] = avg
	return avg, nil
}

// Currencies returns the currency codes present in the history, sorted.
func (e *ECBRates) Currencies() []string {
	out := make([]string, 0, len(e.daily))
	for c := range e.daily {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
