package fifotax

import "github.com/shopspring/decimal"

// usd is a helper for tests to create US dollar money from const
func usd(v float64) Money { return M(v, "USD") }

// eur is a helper for tests to create euro money from const
func eur(v float64) Money { return M(v, EUR) }

// day is a helper for tests to parse a date literal
func day(s string) Date { return MustParseDate(s) }

// usdRates builds a FixedRates resolver from date literal to USD rate.
func usdRates(daily map[string]float64) *FixedRates {
	table := make(map[Date]decimal.Decimal, len(daily))
	for d, r := range daily {
		table[day(d)] = decimal.NewFromFloat(r)
	}
	return &FixedRates{Daily: map[string]map[Date]decimal.Decimal{"USD": table}}
}
