package fifotax

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProcess_DepositBuySell(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewBuy(day("2024-01-10"), "", "ACME", Q(10), usd(50), Money{}),
		NewSell(day("2024-03-01"), "", "ACME", Q(4), usd(70), Money{}),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.SharePairs) != 1 {
		t.Fatalf("got %d share pairs, want 1", len(rep.SharePairs))
	}
	p := rep.SharePairs[0]
	if !p.Quantity.Equal(Q(4)) || !p.UnitCost.Equal(usd(50)) || !p.UnitProceeds.Equal(usd(70)) {
		t.Errorf("share pair = %+v, want 4 bought at 50, sold at 70", p)
	}
	if !p.BuyDate.Equal(day("2024-01-10")) || !p.SellDate.Equal(day("2024-03-01")) {
		t.Errorf("pair dates = %s..%s", p.BuyDate, p.SellDate)
	}

	// The buy consumed 500 USD of the deposit, acquisition-dated at deposit.
	if len(rep.ForexPairs) != 1 {
		t.Fatalf("got %d forex pairs, want 1", len(rep.ForexPairs))
	}
	fx := rep.ForexPairs[0]
	if fx.Symbol != "USD" || !fx.Quantity.Equal(Q(500)) || !fx.BuyDate.Equal(day("2024-01-05")) {
		t.Errorf("forex pair = %+v, want 500 USD acquired 2024-01-05", fx)
	}

	// 6 shares remain open; cash is 500 left + 280 proceeds.
	if len(rep.OpenLots) != 1 || !rep.OpenLots[0].Quantity.Equal(Q(6)) {
		t.Fatalf("open lots = %+v, want 6 ACME", rep.OpenLots)
	}
	var total Quantity
	for _, pos := range rep.Positions {
		total = total.Add(pos.Amount)
	}
	if !total.Equal(Q(780)) {
		t.Errorf("remaining USD = %s, want 780", total)
	}
	if got := []int{2024}; len(rep.Years) != 1 || rep.Years[0] != got[0] {
		t.Errorf("years = %v, want [2024]", rep.Years)
	}
}

func TestProcess_SellWithoutLotsFails(t *testing.T) {
	events := []Event{
		NewSell(day("2024-03-01"), "", "ACME", Q(4), usd(70), Money{}),
	}
	_, err := Process(events, Options{})
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("got %v, want InsufficientBalanceError", err)
	}
}

func TestProcess_InvalidEventAborts(t *testing.T) {
	events := []Event{
		NewBuy(day("2024-01-10"), "", "", Q(10), usd(50), Money{}), // missing symbol
	}
	if _, err := Process(events, Options{}); err == nil {
		t.Fatal("processing an invalid event must fail")
	}
}

func TestProcess_SplitBetweenBuyAndSell(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewBuy(day("2024-01-10"), "", "ACME", Q(10), usd(100), Money{}),
		NewStockSplit(day("2024-02-01"), "ACME", decimal.NewFromInt(4)),
		NewSell(day("2024-03-01"), "", "ACME", Q(40), usd(30), Money{}),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p := rep.SharePairs[0]
	if !p.Quantity.Equal(Q(40)) || !p.UnitCost.Equal(usd(25)) {
		t.Errorf("pair = %s at %s, want 40 at post-split cost 25 USD", p.Quantity, p.UnitCost)
	}
	// Cost basis is invariant: 40 x 25 == 10 x 100.
	if !p.Cost().Equal(usd(1000)) {
		t.Errorf("cost basis = %s, want 1000 USD", p.Cost())
	}
}

func TestProcess_RSUDeposit(t *testing.T) {
	events := []Event{
		NewRSUDeposit(day("2024-05-15"), "", "ACME", Q(10), Q(6), usd(100)),
		NewSell(day("2024-06-01"), "", "ACME", Q(6), usd(120), Money{}),
	}
	_, err := Process(events, Options{})
	if err == nil {
		t.Fatal("selling RSU shares through the open-market queue must fail")
	}

	events[1] = NewVariantSell(day("2024-06-01"), "", "ACME", VariantRSU, Q(6), usd(120), Money{})
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Only the net quantity is held; the bonus is the gross value.
	p := rep.SharePairs[0]
	if !p.Quantity.Equal(Q(6)) || !p.UnitCost.Equal(usd(100)) || p.Variant != VariantRSU {
		t.Errorf("pair = %+v, want 6 rsu shares at fair market value 100", p)
	}
	if len(rep.Bonuses) != 1 || !rep.Bonuses[0].Amount.Equal(usd(1000)) {
		t.Fatalf("bonuses = %+v, want one of 1000 USD", rep.Bonuses)
	}

	// Z4 bonus, Z10 deposit, Z10 withholding, Z10 sale.
	if len(rep.AWVEntries) != 4 {
		t.Fatalf("got %d AWV entries, want 4", len(rep.AWVEntries))
	}
	withheld := rep.AWVEntries[2]
	if withheld.Category != AWVZ10 || !withheld.Quantity.Equal(Q(4)) || !withheld.Value.Equal(usd(400)) {
		t.Errorf("withholding entry = %+v, want 4 shares worth 400 USD", withheld)
	}
}

func TestProcess_ESPPPurchase(t *testing.T) {
	events := []Event{
		NewESPPPurchase(day("2024-04-01"), "", "ACME", Q(20), usd(100), usd(85)),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Held at fair market value, bonus is the discount.
	if len(rep.OpenLots) != 1 || !rep.OpenLots[0].UnitCost.Equal(usd(100)) || rep.OpenLots[0].Variant != VariantESPP {
		t.Fatalf("open lots = %+v, want 20 espp shares at 100", rep.OpenLots)
	}
	if len(rep.Bonuses) != 1 || !rep.Bonuses[0].Amount.Equal(usd(300)) {
		t.Errorf("bonuses = %+v, want the 300 USD discount", rep.Bonuses)
	}
}

func TestProcess_DividendIsTaxFreeForex(t *testing.T) {
	events := []Event{
		NewDividend(day("2024-03-15"), "", "ACME", usd(100), usd(15)),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Dividends) != 1 || !rep.Dividends[0].Amount.Equal(usd(100)) {
		t.Errorf("dividends = %+v, want gross 100 USD", rep.Dividends)
	}
	if len(rep.WithheldTaxes) != 1 || !rep.WithheldTaxes[0].Amount.Equal(usd(15)) {
		t.Errorf("withheld taxes = %+v, want 15 USD", rep.WithheldTaxes)
	}
	// Net proceeds arrive as a tax-free USD sub-balance.
	if len(rep.Positions) != 1 {
		t.Fatalf("positions = %+v, want one", rep.Positions)
	}
	pos := rep.Positions[0]
	if !pos.Amount.Equal(Q(85)) || !pos.TaxFree {
		t.Errorf("position = %+v, want 85 USD tax-free", pos)
	}
}

func TestProcess_FeesAreDebitedAndRecorded(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewBuy(day("2024-01-10"), "", "ACME", Q(10), usd(50), usd(5)),
		NewSell(day("2024-03-01"), "", "ACME", Q(10), usd(70), usd(10)),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Fees) != 2 {
		t.Fatalf("fees = %+v, want buy and sell fee", rep.Fees)
	}
	// The sell fee is allocated into the matched pair.
	if !rep.SharePairs[0].Fee.Equal(usd(10)) {
		t.Errorf("pair fee = %s, want 10 USD", rep.SharePairs[0].Fee)
	}
	// 1000 - 500 - 5 + 700 - 10 = 1185.
	var total Quantity
	for _, pos := range rep.Positions {
		total = total.Add(pos.Amount)
	}
	if !total.Equal(Q(1185)) {
		t.Errorf("remaining USD = %s, want 1185", total)
	}
}

func TestProcess_ExchangeWithUnknownEURSide(t *testing.T) {
	rates := usdRates(map[string]float64{"2024-03-01": 1.25})
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewExchangeToEUR(day("2024-03-01"), "", usd(500)),
	}
	rep, err := Process(events, Options{Rates: rates})
	if err != nil {
		t.Fatal(err)
	}
	// 500 USD at 1.25 USD per EUR is 400 EUR.
	if !rep.EURBalance.Equal(eur(400)) {
		t.Errorf("EUR balance = %s, want 400", rep.EURBalance)
	}
	// The spent dollars are a forex disposal with the deposit's buy date.
	if len(rep.ForexPairs) != 1 || !rep.ForexPairs[0].Quantity.Equal(Q(500)) {
		t.Fatalf("forex pairs = %+v, want one of 500 USD", rep.ForexPairs)
	}
}

func TestProcess_ExchangeWithoutResolverFails(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewExchangeToEUR(day("2024-03-01"), "", usd(500)),
	}
	if _, err := Process(events, Options{}); err == nil {
		t.Fatal("an exchange with an unknown EUR side needs a rate resolver")
	}
}

func TestProcess_WithdrawalKeepsAcquisitionDates(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(300), Date{}),
		NewDeposit(day("2024-02-05"), "", usd(300), Date{}),
		NewWithdrawal(day("2024-03-01"), "", usd(400)),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Withdrawals) != 2 {
		t.Fatalf("withdrawals = %+v, want two matched pairs", rep.Withdrawals)
	}
	if !rep.Withdrawals[0].BuyDate.Equal(day("2024-01-05")) || !rep.Withdrawals[0].Quantity.Equal(Q(300)) {
		t.Errorf("first withdrawal pair = %+v", rep.Withdrawals[0])
	}
	if !rep.Withdrawals[1].Quantity.Equal(Q(100)) {
		t.Errorf("second withdrawal pair = %+v, want the 100 USD remainder", rep.Withdrawals[1])
	}
}

type staticSplits map[string][]SplitAdjustment

func (s staticSplits) Splits(symbol string) ([]SplitAdjustment, error) { return s[symbol], nil }

func TestProcess_ResolverSplits(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "", usd(1000), Date{}),
		NewBuy(day("2024-01-10"), "", "ACME", Q(10), usd(100), Money{}),
		NewSell(day("2024-03-01"), "", "ACME", Q(20), usd(55), Money{}),
	}
	splits := staticSplits{
		"ACME": {{Symbol: "ACME", Effective: day("2024-02-01"), Ratio: decimal.NewFromInt(2)}},
	}
	rep, err := Process(events, Options{Splits: splits})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.SharePairs[0].Quantity.Equal(Q(20)) || !rep.SharePairs[0].UnitCost.Equal(usd(50)) {
		t.Errorf("pair = %+v, want 20 at 50 after the resolved 2:1 split", rep.SharePairs[0])
	}
}

func TestProcess_DepositWithEarlierBuyDate(t *testing.T) {
	// Carry-forward: money reached this account in March but was acquired in
	// January of the previous year.
	events := []Event{
		NewDeposit(day("2024-03-01"), "", usd(500), day("2023-01-15")),
		NewWithdrawal(day("2024-03-10"), "", usd(500)),
	}
	rep, err := Process(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Withdrawals[0].BuyDate.Equal(day("2023-01-15")) {
		t.Errorf("withdrawal buy date = %s, want the carried 2023-01-15", rep.Withdrawals[0].BuyDate)
	}
}
