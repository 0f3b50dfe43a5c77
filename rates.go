package fifotax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateMode selects how a foreign amount is converted to EUR on a given date.
// The two modes are mutually exclusive for one report run.
type RateMode int

const (
	// RateDaily converts at the ECB reference rate of the transaction date.
	RateDaily RateMode = iota
	// RateMonthlyAverage converts at the average of the daily rates of the
	// transaction month.
	RateMonthlyAverage
)

func (m RateMode) String() string {
	switch m {
	case RateDaily:
		return "daily"
	case RateMonthlyAverage:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParseRateMode parses a string into a RateMode.
func ParseRateMode(s string) (RateMode, error) {
	switch s {
	case "daily":
		return RateDaily, nil
	case "monthly":
		return RateMonthlyAverage, nil
	default:
		return 0, fmt.Errorf("unknown rate mode %q, want daily or monthly", s)
	}
}

// RateResolver resolves historical EUR exchange rates. Rates follow the ECB
// quote convention: 1 EUR = rate units of the foreign currency, so the EUR
// value of a native amount is amount / rate. Rate must return a
// MissingRateError when it has no entry for the date and currency; Rate for
// EUR itself is always 1.
//
// A resolver is treated as a pure function of (currency, date, mode); caching
// is the implementation's concern.
type RateResolver interface {
	Rate(currency string, on Date, mode RateMode) (decimal.Decimal, error)
}

// toEUR converts a native money value at the resolved rate of the given date.
func toEUR(m Money, on Date, mode RateMode, rates RateResolver) (Money, error) {
	if m.Currency() == EUR || m.Currency() == "" {
		return M(m.Amount(), EUR), nil
	}
	rate, err := rates.Rate(m.Currency(), on, mode)
	if err != nil {
		return Money{}, err
	}
	return M(m.Amount().Div(rate), EUR), nil
}

// FixedRates is an in-memory RateResolver backed by explicit per-date and
// per-month tables. Intended for tests and for callers that bring their own
// rate data.
type FixedRates struct {
	Daily   map[string]map[Date]decimal.Decimal
	Monthly map[string]map[YearMonth]decimal.Decimal
}

// YearMonth keys monthly-average rate tables.
type YearMonth struct {
	Year  int
	Month int
}

// Rate implements RateResolver.
func (f *FixedRates) Rate(currency string, on Date, mode RateMode) (decimal.Decimal, error) {
	if currency == EUR {
		return decimal.NewFromInt(1), nil
	}
	switch mode {
	case RateMonthlyAverage:
		if r, ok := f.Monthly[currency][YearMonth{on.Year(), int(on.Month())}]; ok {
			return r, nil
		}
	default:
		if r, ok := f.Daily[currency][on]; ok {
			return r, nil
		}
	}
	return decimal.Decimal{}, &MissingRateError{Currency: currency, On: on}
}

var _ RateResolver = (*FixedRates)(nil)
