package fifotax

import (
	"fmt"
	"strings"
)

// GainLine is one matched pair converted to EUR for a tax year. Cost converts
// at the acquisition-date rate, proceeds and fee at the disposal-date rate,
// so the line's gain includes the currency movement over the holding period.
type GainLine struct {
	Symbol   string   `json:"symbol"`
	Variant  Variant  `json:"variant,omitempty"`
	Quantity Quantity `json:"quantity"`
	BuyDate  Date     `json:"buy_date"`
	SellDate Date     `json:"sell_date"`
	Cost     Money    `json:"cost"`
	Proceeds Money    `json:"proceeds"`
	Fee      Money    `json:"fee,omitempty"`
	Gain     Money    `json:"gain"`
}

// MarshalJSON implements the json.Marshaler interface for GainLine.
func (g GainLine) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", g.Symbol)
	w.Optional("variant", g.Variant)
	w.Append("quantity", g.Quantity)
	w.Append("buy_date", g.BuyDate)
	w.Append("sell_date", g.SellDate)
	w.Append("cost", g.Cost)
	w.Append("proceeds", g.Proceeds)
	w.Optional("fee", g.Fee)
	w.Append("gain", g.Gain)
	return w.MarshalJSON()
}

// TaxFlow is a CashFlow with its EUR conversion at the flow's own date.
type TaxFlow struct {
	CashFlow
	AmountEUR Money `json:"amount_eur"`
}

// MarshalJSON implements the json.Marshaler interface for TaxFlow.
func (f TaxFlow) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(f.CashFlow)
	w.Append("amount_eur", f.AmountEUR)
	return w.MarshalJSON()
}

// TaxReport holds the EUR figures of one calendar year, derived from a Report
// under one rate mode. Share gains and losses are totaled separately because
// share losses only offset share gains.
type TaxReport struct {
	Year int      `json:"year"`
	Mode RateMode `json:"-"`

	ShareGains []GainLine `json:"share_gains,omitempty"`
	ForexGains []GainLine `json:"forex_gains,omitempty"` // within the one-year speculative period only

	Dividends     []TaxFlow `json:"dividends,omitempty"`
	Bonuses       []TaxFlow `json:"bonuses,omitempty"`
	Fees          []TaxFlow `json:"fees,omitempty"`
	WithheldTaxes []TaxFlow `json:"withheld_taxes,omitempty"`

	TotalShareGain Money `json:"total_share_gain"` // gains only
	TotalShareLoss Money `json:"total_share_loss"` // losses, as a positive number
	TotalForexGain Money `json:"total_forex_gain"` // net speculative gain
	TotalDividends Money `json:"total_dividends"`
	TotalBonuses   Money `json:"total_bonuses"`
	TotalFees      Money `json:"total_fees"`
	TotalWithheld  Money `json:"total_withheld_taxes"`
}

// withinSpeculativePeriod reports whether a disposal falls inside the
// one-year holding period of §23 EStG: disposals after the acquisition
// anniversary are tax-free.
func withinSpeculativePeriod(buy, sell Date) bool {
	anniversary := NewDate(buy.Year()+1, buy.Month(), buy.Day())
	return !sell.After(anniversary)
}

func cents(m Money) Money { return M(m.Amount().Round(2), m.Currency()) }

// gainLine converts one matched pair to EUR under the given mode.
func gainLine(p MatchedPair, mode RateMode, rates RateResolver) (GainLine, error) {
	cost, err := toEUR(p.Cost(), p.BuyDate, mode, rates)
	if err != nil {
		return GainLine{}, err
	}
	proceeds, err := toEUR(p.Proceeds(), p.SellDate, mode, rates)
	if err != nil {
		return GainLine{}, err
	}
	fee, err := toEUR(p.Fee, p.SellDate, mode, rates)
	if err != nil {
		return GainLine{}, err
	}
	cost, proceeds, fee = cents(cost), cents(proceeds), cents(fee)
	return GainLine{
		Symbol:   p.Symbol,
		Variant:  p.Variant,
		Quantity: p.Quantity,
		BuyDate:  p.BuyDate,
		SellDate: p.SellDate,
		Cost:     cost,
		Proceeds: proceeds,
		Fee:      fee,
		Gain:     proceeds.Sub(cost).Sub(fee),
	}, nil
}

func taxFlows(flows []CashFlow, year int, mode RateMode, rates RateResolver) ([]TaxFlow, Money, error) {
	var out []TaxFlow
	total := M(0, EUR)
	for _, f := range flows {
		if f.Date.Year() != year {
			continue
		}
		eur, err := toEUR(f.Amount, f.Date, mode, rates)
		if err != nil {
			return nil, Money{}, err
		}
		eur = cents(eur)
		out = append(out, TaxFlow{CashFlow: f, AmountEUR: eur})
		total = total.Add(eur)
	}
	return out, total, nil
}

// TaxReport derives the EUR tax figures of one calendar year. Forex pairs are
// excluded when tax-free (acquired through dividend payments) or outside the
// speculative period; share pairs always count.
func (r *Report) TaxReport(year int, mode RateMode, rates RateResolver) (*TaxReport, error) {
	t := &TaxReport{
		Year:           year,
		Mode:           mode,
		TotalShareGain: M(0, EUR),
		TotalShareLoss: M(0, EUR),
		TotalForexGain: M(0, EUR),
	}

	for _, p := range r.SharePairs {
		if p.SellDate.Year() != year {
			continue
		}
		line, err := gainLine(p, mode, rates)
		if err != nil {
			return nil, err
		}
		t.ShareGains = append(t.ShareGains, line)
		if line.Gain.IsNegative() {
			t.TotalShareLoss = t.TotalShareLoss.Add(line.Gain.Neg())
		} else {
			t.TotalShareGain = t.TotalShareGain.Add(line.Gain)
		}
	}

	for _, p := range r.ForexPairs {
		if p.SellDate.Year() != year || p.TaxFree {
			continue
		}
		if !withinSpeculativePeriod(p.BuyDate, p.SellDate) {
			continue
		}
		line, err := gainLine(p, mode, rates)
		if err != nil {
			return nil, err
		}
		t.ForexGains = append(t.ForexGains, line)
		t.TotalForexGain = t.TotalForexGain.Add(line.Gain)
	}

	var err error
	if t.Dividends, t.TotalDividends, err = taxFlows(r.Dividends, year, mode, rates); err != nil {
		return nil, err
	}
	if t.Bonuses, t.TotalBonuses, err = taxFlows(r.Bonuses, year, mode, rates); err != nil {
		return nil, err
	}
	if t.Fees, t.TotalFees, err = taxFlows(r.Fees, year, mode, rates); err != nil {
		return nil, err
	}
	if t.WithheldTaxes, t.TotalWithheld, err = taxFlows(r.WithheldTaxes, year, mode, rates); err != nil {
		return nil, err
	}
	return t, nil
}

func eurCell(m Money) string { return m.Amount().StringFixed(2) + " EUR" }

// MarkdownSummary renders the report as a markdown document, one table per
// section, ready for terminal rendering.
func (t *TaxReport) MarkdownSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tax Report %d (%s rates)\n\n", t.Year, t.Mode)

	if len(t.ShareGains) > 0 {
		b.WriteString("## Share Gains\n\n")
		b.WriteString("| Symbol | Quantity | Buy Date | Sell Date | Cost | Proceeds | Fee | Gain |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, g := range t.ShareGains {
			sym := g.Symbol
			if g.Variant != VariantOpenMarket {
				sym += " (" + string(g.Variant) + ")"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				sym, g.Quantity, g.BuyDate, g.SellDate,
				eurCell(g.Cost), eurCell(g.Proceeds), eurCell(g.Fee), eurCell(g.Gain))
		}
		b.WriteString("\n")
	}

	if len(t.ForexGains) > 0 {
		b.WriteString("## Foreign Currency Gains (speculative period)\n\n")
		b.WriteString("| Currency | Amount | Buy Date | Sell Date | Cost | Proceeds | Gain |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, g := range t.ForexGains {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				g.Symbol, g.Quantity, g.BuyDate, g.SellDate,
				eurCell(g.Cost), eurCell(g.Proceeds), eurCell(g.Gain))
		}
		b.WriteString("\n")
	}

	writeFlows := func(title string, flows []TaxFlow) {
		if len(flows) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		b.WriteString("| Date | Amount | EUR |\n|---|---|---|\n")
		for _, f := range flows {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", f.Date, f.Amount, eurCell(f.AmountEUR))
		}
		b.WriteString("\n")
	}
	writeFlows("Dividends", t.Dividends)
	writeFlows("Compensation Benefits", t.Bonuses)
	writeFlows("Fees", t.Fees)
	writeFlows("Withheld Taxes", t.WithheldTaxes)

	b.WriteString("## Totals\n\n")
	b.WriteString("| | EUR |\n|---|---|\n")
	fmt.Fprintf(&b, "| Share gains | %s |\n", eurCell(t.TotalShareGain))
	fmt.Fprintf(&b, "| Share losses | %s |\n", eurCell(t.TotalShareLoss))
	fmt.Fprintf(&b, "| Foreign currency gains | %s |\n", eurCell(t.TotalForexGain))
	fmt.Fprintf(&b, "| Dividends | %s |\n", eurCell(t.TotalDividends))
	fmt.Fprintf(&b, "| Compensation benefits | %s |\n", eurCell(t.TotalBonuses))
	fmt.Fprintf(&b, "| Fees | %s |\n", eurCell(t.TotalFees))
	fmt.Fprintf(&b, "| Withheld taxes | %s |\n", eurCell(t.TotalWithheld))
	return b.String()
}
