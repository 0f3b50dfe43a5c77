package fifotax

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTaxReport_ShareGainsConvertAtBothDates(t *testing.T) {
	rates := usdRates(map[string]float64{
		"2024-01-10": 1.10,
		"2024-03-01": 1.25,
	})
	rep := &Report{
		SharePairs: []MatchedPair{{
			Symbol:       "ACME",
			Quantity:     Q(4),
			BuyDate:      day("2024-01-10"),
			SellDate:     day("2024-03-01"),
			UnitCost:     usd(50),
			UnitProceeds: usd(70),
		}},
	}
	tax, err := rep.TaxReport(2024, RateDaily, rates)
	if err != nil {
		t.Fatal(err)
	}
	if len(tax.ShareGains) != 1 {
		t.Fatalf("got %d gain lines, want 1", len(tax.ShareGains))
	}
	g := tax.ShareGains[0]
	// 200 USD at 1.10 and 280 USD at 1.25, rounded to cents.
	if !g.Cost.Equal(eur(181.82)) {
		t.Errorf("cost = %s, want 181.82 EUR", g.Cost)
	}
	if !g.Proceeds.Equal(eur(224)) {
		t.Errorf("proceeds = %s, want 224 EUR", g.Proceeds)
	}
	if !g.Gain.Equal(eur(42.18)) {
		t.Errorf("gain = %s, want 42.18 EUR", g.Gain)
	}
	if !tax.TotalShareGain.Equal(eur(42.18)) || !tax.TotalShareLoss.Equal(eur(0)) {
		t.Errorf("totals = %s gain, %s loss", tax.TotalShareGain, tax.TotalShareLoss)
	}
}

func TestTaxReport_LossesTotalSeparately(t *testing.T) {
	rates := usdRates(map[string]float64{
		"2024-01-10": 1.00,
		"2024-03-01": 1.00,
	})
	rep := &Report{
		SharePairs: []MatchedPair{
			{Symbol: "ACME", Quantity: Q(1), BuyDate: day("2024-01-10"), SellDate: day("2024-03-01"),
				UnitCost: usd(50), UnitProceeds: usd(70)},
			{Symbol: "ZORG", Quantity: Q(1), BuyDate: day("2024-01-10"), SellDate: day("2024-03-01"),
				UnitCost: usd(90), UnitProceeds: usd(60)},
		},
	}
	tax, err := rep.TaxReport(2024, RateDaily, rates)
	if err != nil {
		t.Fatal(err)
	}
	if !tax.TotalShareGain.Equal(eur(20)) {
		t.Errorf("gain total = %s, want 20 EUR", tax.TotalShareGain)
	}
	if !tax.TotalShareLoss.Equal(eur(30)) {
		t.Errorf("loss total = %s, want 30 EUR as a positive number", tax.TotalShareLoss)
	}
}

func TestTaxReport_ForexSpeculativePeriod(t *testing.T) {
	rates := usdRates(map[string]float64{
		"2023-01-05": 1.00,
		"2023-06-01": 1.00,
		"2024-03-01": 1.25,
	})
	rep := &Report{
		ForexPairs: []MatchedPair{
			// Held longer than a year: tax-free, excluded.
			{Symbol: "USD", Quantity: Q(100), BuyDate: day("2023-01-05"), SellDate: day("2024-03-01"),
				UnitCost: usd(1), UnitProceeds: usd(1)},
			// Within the speculative period: taxable.
			{Symbol: "USD", Quantity: Q(100), BuyDate: day("2023-06-01"), SellDate: day("2024-03-01"),
				UnitCost: usd(1), UnitProceeds: usd(1)},
			// Dividend-sourced: tax-free regardless of holding period.
			{Symbol: "USD", Quantity: Q(100), BuyDate: day("2024-03-01"), SellDate: day("2024-03-01"),
				UnitCost: usd(1), UnitProceeds: usd(1), TaxFree: true},
		},
	}
	tax, err := rep.TaxReport(2024, RateDaily, rates)
	if err != nil {
		t.Fatal(err)
	}
	if len(tax.ForexGains) != 1 {
		t.Fatalf("got %d forex gain lines, want only the speculative one", len(tax.ForexGains))
	}
	// 100 USD cost 100 EUR at 1.00, proceeds 80 EUR at 1.25.
	if !tax.TotalForexGain.Equal(eur(-20)) {
		t.Errorf("forex gain = %s, want -20 EUR", tax.TotalForexGain)
	}
}

func TestTaxReport_YearFilter(t *testing.T) {
	rates := usdRates(map[string]float64{
		"2023-03-15": 1.00,
		"2024-03-15": 1.00,
	})
	rep := &Report{
		Dividends: []CashFlow{
			{Date: day("2023-03-15"), Amount: usd(100)},
			{Date: day("2024-03-15"), Amount: usd(200)},
		},
	}
	tax, err := rep.TaxReport(2024, RateDaily, rates)
	if err != nil {
		t.Fatal(err)
	}
	if len(tax.Dividends) != 1 || !tax.TotalDividends.Equal(eur(200)) {
		t.Errorf("dividends = %+v, want only the 2024 one", tax.Dividends)
	}
}

func TestTaxReport_MonthlyAverageMode(t *testing.T) {
	rates := &FixedRates{
		Monthly: map[string]map[YearMonth]decimal.Decimal{
			"USD": {
				{2024, 1}: decimal.NewFromFloat(1.10),
				{2024, 3}: decimal.NewFromFloat(1.25),
			},
		},
	}
	rep := &Report{
		SharePairs: []MatchedPair{{
			Symbol: "ACME", Quantity: Q(4), BuyDate: day("2024-01-10"), SellDate: day("2024-03-01"),
			UnitCost: usd(50), UnitProceeds: usd(70),
		}},
	}
	tax, err := rep.TaxReport(2024, RateMonthlyAverage, rates)
	if err != nil {
		t.Fatal(err)
	}
	if !tax.ShareGains[0].Gain.Equal(eur(42.18)) {
		t.Errorf("gain = %s, want 42.18 EUR under monthly averages", tax.ShareGains[0].Gain)
	}
}

func TestTaxReport_MissingRateFails(t *testing.T) {
	rep := &Report{
		SharePairs: []MatchedPair{{
			Symbol: "ACME", Quantity: Q(1), BuyDate: day("2024-01-10"), SellDate: day("2024-03-01"),
			UnitCost: usd(50), UnitProceeds: usd(70),
		}},
	}
	_, err := rep.TaxReport(2024, RateDaily, usdRates(nil))
	if err == nil {
		t.Fatal("a missing rate must abort the tax report")
	}
}

func TestWithinSpeculativePeriod(t *testing.T) {
	testCases := []struct {
		name      string
		buy, sell string
		want      bool
	}{
		{"same day", "2024-01-05", "2024-01-05", true},
		{"eleven months", "2023-04-05", "2024-03-01", true},
		{"exactly one year", "2023-03-01", "2024-03-01", true},
		{"one year and a day", "2023-03-01", "2024-03-02", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := withinSpeculativePeriod(day(tc.buy), day(tc.sell)); got != tc.want {
				t.Errorf("withinSpeculativePeriod(%s, %s) = %v, want %v", tc.buy, tc.sell, got, tc.want)
			}
		})
	}
}

func TestMarkdownSummary(t *testing.T) {
	rates := usdRates(map[string]float64{
		"2024-01-10": 1.00,
		"2024-03-01": 1.00,
	})
	rep := &Report{
		SharePairs: []MatchedPair{{
			Symbol: "ACME", Quantity: Q(4), BuyDate: day("2024-01-10"), SellDate: day("2024-03-01"),
			UnitCost: usd(50), UnitProceeds: usd(70),
		}},
	}
	tax, err := rep.TaxReport(2024, RateDaily, rates)
	if err != nil {
		t.Fatal(err)
	}
	md := tax.MarkdownSummary()
	for _, want := range []string{"# Tax Report 2024", "## Share Gains", "ACME", "## Totals"} {
		if !strings.Contains(md, want) {
			t.Errorf("summary is missing %q", want)
		}
	}
}
