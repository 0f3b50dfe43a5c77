package fifotax

// AWV reporting (Außenwirtschaftsverordnung): residents must report
// cross-border payments and securities transactions above a monthly
// threshold to the Bundesbank. The engine records every potentially
// reportable transaction; DetectAWV filters by EUR value and year.

import (
	"fmt"
	"sort"
)

// AWVCategory is the Bundesbank report sheet an entry belongs to.
type AWVCategory string

const (
	// AWVZ4 covers cross-border capital flows, here the compensation value
	// of RSU lapses and ESPP discounts.
	AWVZ4 AWVCategory = "Z4"
	// AWVZ10 covers cross-border securities transactions: deposits, buys,
	// sales, and broker tax withholdings.
	AWVZ10 AWVCategory = "Z10"
)

// AWVEntry is one potentially reportable transaction in its native currency.
// Incoming is the resident's perspective: true when value flows toward the
// resident.
type AWVEntry struct {
	Category AWVCategory `json:"category"`
	Date     Date        `json:"date"`
	Symbol   string      `json:"symbol,omitempty"`
	Purpose  string      `json:"purpose"`
	Quantity Quantity    `json:"quantity,omitempty"` // Z10 only
	Value    Money       `json:"value"`
	Incoming bool        `json:"incoming,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface for AWVEntry.
func (e AWVEntry) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("category", e.Category)
	w.Append("date", e.Date)
	w.Optional("symbol", e.Symbol)
	w.Append("purpose", e.Purpose)
	if !e.Quantity.IsZero() {
		w.Append("quantity", e.Quantity)
	}
	w.Append("value", e.Value)
	w.Optional("incoming", e.Incoming)
	return w.MarshalJSON()
}

func awvRSUBonus(on Date, symbol string, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ4,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Gehaltsbestandteil RSUs (%s)", symbol),
		Value:    value,
		Incoming: true,
	}
}

func awvRSUDeposit(on Date, symbol string, quantity Quantity, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ10,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Erhalt Aktien aus RSUs (%s)", symbol),
		Quantity: quantity,
		Value:    value,
		Incoming: true,
	}
}

func awvRSUTaxWithholding(on Date, symbol string, quantity Quantity, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ10,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Einbehalt Aktien zur Steuerzahlung (%s)", symbol),
		Quantity: quantity,
		Value:    value,
	}
}

func awvESPPBonus(on Date, symbol string, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ4,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Gehaltsbestandteil ESPP-Rabatt (%s)", symbol),
		Value:    value,
		Incoming: true,
	}
}

func awvESPPDeposit(on Date, symbol string, quantity Quantity, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ10,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Erhalt Aktien aus ESPP (%s)", symbol),
		Quantity: quantity,
		Value:    value,
		Incoming: true,
	}
}

func awvBuy(on Date, symbol string, quantity Quantity, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ10,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Kauf Aktien (%s)", symbol),
		Quantity: quantity,
		Value:    value,
	}
}

func awvSale(on Date, symbol string, quantity Quantity, value Money) AWVEntry {
	return AWVEntry{
		Category: AWVZ10,
		Date:     on,
		Symbol:   symbol,
		Purpose:  fmt.Sprintf("Verkauf Aktien (%s)", symbol),
		Quantity: quantity,
		Value:    value,
		Incoming: true,
	}
}

// AWVFlag is an entry whose EUR value reached the reporting threshold.
type AWVFlag struct {
	AWVEntry
	ValueEUR Money `json:"value_eur"`
}

// MarshalJSON implements the json.Marshaler interface for AWVFlag.
func (f AWVFlag) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(f.AWVEntry)
	w.Append("value_eur", f.ValueEUR)
	return w.MarshalJSON()
}

// DefaultAWVThreshold is the Bundesbank reporting threshold per transaction.
func DefaultAWVThreshold() Money { return M(12500, EUR) }

// DetectAWV converts each entry's value to EUR at the daily rate of its date
// and returns those of the given year at or above the threshold, sorted by
// date. A zero threshold selects DefaultAWVThreshold; year 0 keeps all years.
// Reaching the threshold means the transaction must be reported; the actual
// filing stays with the caller.
func DetectAWV(entries []AWVEntry, rates RateResolver, year int, threshold Money) ([]AWVFlag, error) {
	if threshold.IsZero() {
		threshold = DefaultAWVThreshold()
	}

	var flags []AWVFlag
	for _, e := range entries {
		if year != 0 && e.Date.Year() != year {
			continue
		}
		value := e.Value
		if value.IsNegative() {
			value = value.Neg()
		}
		eur, err := toEUR(value, e.Date, RateDaily, rates)
		if err != nil {
			return nil, err
		}
		if eur.LessThan(threshold) {
			continue
		}
		flags = append(flags, AWVFlag{AWVEntry: e, ValueEUR: M(eur.Amount().Round(2), EUR)})
	}
	sort.SliceStable(flags, func(i, j int) bool { return flags[i].Date.Before(flags[j].Date) })
	return flags, nil
}
