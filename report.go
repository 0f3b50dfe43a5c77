package fifotax

import (
	"errors"
	"fmt"
	"sort"
)

// Options configures one report run.
type Options struct {
	// Ordering resolves same-day event order; nil selects DefaultOrdering.
	Ordering Ordering
	// Rates resolves historical exchange rates. Required when any currency
	// exchange leaves its EUR side unknown; otherwise the engine never
	// touches it.
	Rates RateResolver
	// Splits supplies historical split data per symbol. Nil means splits are
	// caller-managed through StockSplit events. See SplitResolver for the
	// double-count caveat.
	Splits SplitResolver
}

// CashFlow is one dated monetary item outside the FIFO queues: dividend
// income, taxable compensation benefit, fees, withheld taxes.
type CashFlow struct {
	Date   Date   `json:"date"`
	Amount Money  `json:"amount"`
	Memo   string `json:"memo,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface for CashFlow.
func (c CashFlow) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", c.Date)
	w.Append("amount", c.Amount)
	w.Optional("memo", c.Memo)
	return w.MarshalJSON()
}

// OpenLot is one still-open share lot at the end of a run, for carry-forward
// into the next reporting period.
type OpenLot struct {
	Symbol   string   `json:"symbol"`
	Variant  Variant  `json:"variant,omitempty"`
	BuyDate  Date     `json:"buy_date"`
	Quantity Quantity `json:"quantity"`
	UnitCost Money    `json:"unit_cost"`
}

// MarshalJSON implements the json.Marshaler interface for OpenLot.
func (l OpenLot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", l.Symbol)
	w.Optional("variant", l.Variant)
	w.Append("buy_date", l.BuyDate)
	w.Append("quantity", l.Quantity)
	w.Append("unit_cost", l.UnitCost)
	return w.MarshalJSON()
}

// Report is the complete outcome of one run: every matched pair with the data
// needed for EUR conversion, the income and fee lists, the AWV entries, and
// the closing balances for carry-forward. A Report is independent of rate
// mode and report year; TaxReport derives the per-year EUR figures from it.
type Report struct {
	SharePairs  []MatchedPair // closed share lots
	ForexPairs  []MatchedPair // foreign currency spent on buys and exchanges
	Withdrawals []MatchedPair // foreign currency that left the account, with acquisition dates

	Dividends     []CashFlow // gross dividend income
	Bonuses       []CashFlow // taxable ESPP/RSU benefit
	Fees          []CashFlow
	WithheldTaxes []CashFlow

	AWVEntries []AWVEntry

	EURBalance Money
	Positions  []CurrencyPosition // remaining dated foreign sub-balances
	OpenLots   []OpenLot          // remaining share lots

	Years []int // calendar years covered by non-split events
}

// processor owns the mutable state of a single run. Nothing here outlives
// Process, so concurrent runs never share state.
type processor struct {
	held   map[lotKey]*lotQueue
	cash   *balances
	splits *splitBook
	opts   Options
	rep    *Report
}

// Process runs the engine over the given events and produces the report.
// Events may arrive in any order; Process establishes the total order itself.
// Any error aborts the run: there is no partially-correct report.
func Process(events []Event, opts Options) (*Report, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s event on %s: %w", e.What(), e.When(), err)
		}
	}

	all := make([]Event, len(events))
	copy(all, events)
	if opts.Splits != nil {
		extra, err := resolveSplitEvents(events, opts.Splits)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	all = sortEvents(all, opts.Ordering)

	p := &processor{
		held:   make(map[lotKey]*lotQueue),
		cash:   newBalances(),
		splits: newSplitBook(),
		opts:   opts,
		rep:    &Report{},
	}

	years := make(map[int]struct{})
	for _, e := range all {
		if err := p.apply(e); err != nil {
			return nil, err
		}
		if e.What() != KindStockSplit {
			years[e.When().Year()] = struct{}{}
		}
	}

	p.finish(years)
	return p.rep, nil
}

// resolveSplitEvents fetches historical splits for every symbol seen in the
// event stream and wraps them as StockSplit events so they slot into the
// total order like caller-provided ones.
func resolveSplitEvents(events []Event, resolver SplitResolver) ([]Event, error) {
	symbols := make(map[string]struct{})
	for _, e := range events {
		switch v := e.(type) {
		case Buy:
			symbols[v.Symbol] = struct{}{}
		case Sell:
			symbols[v.Symbol] = struct{}{}
		case RSUDeposit:
			symbols[v.Symbol] = struct{}{}
		case ESPPPurchase:
			symbols[v.Symbol] = struct{}{}
		}
	}

	names := make([]string, 0, len(symbols))
	for s := range symbols {
		names = append(names, s)
	}
	sort.Strings(names)

	var out []Event
	for _, s := range names {
		adjs, err := resolver.Splits(s)
		if err != nil {
			return nil, fmt.Errorf("resolving splits for %s: %w", s, err)
		}
		for _, adj := range adjs {
			out = append(out, NewStockSplit(adj.Effective, adj.Symbol, adj.Ratio))
		}
	}
	return out, nil
}

func (p *processor) queue(symbol string, variant Variant) *lotQueue {
	key := lotKey{Symbol: symbol, Variant: variant}
	q, ok := p.held[key]
	if !ok {
		q = newLotQueue(key)
		p.held[key] = q
	}
	return q
}

// payFee debits an optional fee from its currency queue and records it.
func (p *processor) payFee(fee Money, on Date, memo string) error {
	if fee.IsZero() {
		return nil
	}
	if _, err := p.cash.debit(fee, on); err != nil {
		return err
	}
	p.rep.Fees = append(p.rep.Fees, CashFlow{Date: on, Amount: fee, Memo: memo})
	return nil
}

func (p *processor) apply(e Event) error {
	switch v := e.(type) {
	case Deposit:
		return p.applyDeposit(v)
	case Withdrawal:
		return p.applyWithdrawal(v)
	case Buy:
		return p.applyBuy(v)
	case Sell:
		return p.applySell(v)
	case Dividend:
		return p.applyDividend(v)
	case CurrencyExchange:
		return p.applyExchange(v)
	case StockSplit:
		return p.splits.apply(SplitAdjustment{Symbol: v.Symbol, Effective: v.Date, Ratio: v.Ratio}, p.held)
	case RSUDeposit:
		return p.applyRSU(v)
	case ESPPPurchase:
		return p.applyESPP(v)
	default:
		return fmt.Errorf("unhandled event type: %T", e)
	}
}

func (p *processor) applyDeposit(v Deposit) error {
	buyDate := v.BuyDate
	if buyDate.IsZero() {
		buyDate = v.Date
	}
	if err := p.cash.credit(v.Amount, buyDate, false, "Deposit of Money"); err != nil {
		return err
	}
	return p.payFee(v.Fee, v.Date, "Fees for Transfer")
}

func (p *processor) applyWithdrawal(v Withdrawal) error {
	// Fees first: they are never part of the withdrawn amount.
	if err := p.payFee(v.Fee, v.Date, "Fees for Transfer"); err != nil {
		return err
	}
	pairs, err := p.cash.debit(v.Amount, v.Date)
	if err != nil {
		return err
	}
	p.rep.Withdrawals = append(p.rep.Withdrawals, pairs...)
	return nil
}

func (p *processor) applyBuy(v Buy) error {
	cost := v.Price.Mul(v.Quantity)
	pairs, err := p.cash.debit(cost, v.Date)
	if err != nil {
		return err
	}
	p.rep.ForexPairs = append(p.rep.ForexPairs, pairs...)

	if err := p.payFee(v.Fee, v.Date, fmt.Sprintf("Fees for Buy Order (%s x %s)", v.Quantity, v.Symbol)); err != nil {
		return err
	}
	if err := p.queue(v.Symbol, VariantOpenMarket).open(lot{
		BuyDate:  v.Date,
		Quantity: v.Quantity,
		UnitCost: v.Price,
		Source:   "Buy Order",
	}); err != nil {
		return err
	}
	p.rep.AWVEntries = append(p.rep.AWVEntries, awvBuy(v.Date, v.Symbol, v.Quantity, cost))
	return nil
}

func (p *processor) applySell(v Sell) error {
	feePerUnit := Money{}
	if !v.Fee.IsZero() {
		feePerUnit = v.Fee.Div(v.Quantity)
	}
	pairs, err := p.queue(v.Symbol, v.Variant).close(v.Quantity, v.Date, v.Price, feePerUnit)
	if err != nil {
		return err
	}
	p.rep.SharePairs = append(p.rep.SharePairs, pairs...)

	proceeds := v.Price.Mul(v.Quantity)
	if err := p.cash.credit(proceeds, v.Date, false, "Sales Proceeds"); err != nil {
		return err
	}
	if err := p.payFee(v.Fee, v.Date, fmt.Sprintf("Fees for Sell Order (%s x %s)", v.Quantity, v.Symbol)); err != nil {
		return err
	}
	p.rep.AWVEntries = append(p.rep.AWVEntries, awvSale(v.Date, v.Symbol, v.Quantity, proceeds))
	return nil
}

func (p *processor) applyDividend(v Dividend) error {
	memo := fmt.Sprintf("Dividend Payment (%s)", v.Symbol)
	net := v.Amount.Sub(v.WithheldTax)

	if v.Amount.IsPositive() {
		if net.IsPositive() {
			// Dividend proceeds are income, not a capital acquisition: the
			// sub-balance is marked tax-free for the forex-gain report.
			if err := p.cash.credit(net, v.Date, true, memo); err != nil {
				return err
			}
		}
	} else {
		// Negative dividends occur as charges in negative-interest times.
		if _, err := p.cash.debit(v.Amount.Neg(), v.Date); err != nil {
			return err
		}
	}
	p.rep.Dividends = append(p.rep.Dividends, CashFlow{Date: v.Date, Amount: v.Amount, Memo: memo})

	if !v.WithheldTax.IsZero() {
		p.rep.WithheldTaxes = append(p.rep.WithheldTaxes, CashFlow{
			Date:   v.Date,
			Amount: v.WithheldTax,
			Memo:   fmt.Sprintf("Withheld Tax on Dividends (%s)", v.Symbol),
		})
	}
	return nil
}

func (p *processor) applyExchange(v CurrencyExchange) error {
	from, to := v.From, v.To
	memo := fmt.Sprintf("Currency Conversion %s to %s", from.Currency(), to.Currency())

	// Resolve an unknown EUR side from the daily rate of the known side.
	if !from.Valid || !to.Valid {
		if p.opts.Rates == nil {
			return errors.New("currency exchange with unknown EUR side requires a rate resolver")
		}
		if !to.Valid {
			eur, err := toEUR(from.Money, v.Date, RateDaily, p.opts.Rates)
			if err != nil {
				return err
			}
			to = KnownAmount(eur)
		} else {
			eur, err := toEUR(to.Money, v.Date, RateDaily, p.opts.Rates)
			if err != nil {
				return err
			}
			from = KnownAmount(eur)
		}
	}

	pairs, err := p.cash.debit(from.Money, v.Date)
	if err != nil {
		return err
	}
	p.rep.ForexPairs = append(p.rep.ForexPairs, pairs...)

	if err := p.cash.credit(to.Money, v.Date, false, memo); err != nil {
		return err
	}
	return p.payFee(v.Fee, v.Date, fmt.Sprintf("Fees for converting %s to %s", from.Currency(), to.Currency()))
}

func (p *processor) applyRSU(v RSUDeposit) error {
	if err := p.queue(v.Symbol, VariantRSU).open(lot{
		BuyDate:  v.Date,
		Quantity: v.NetQuantity,
		UnitCost: v.FairMarketValue,
		Source:   "RSU Deposit",
	}); err != nil {
		return err
	}

	grossValue := v.FairMarketValue.Mul(v.GrossQuantity)
	p.rep.Bonuses = append(p.rep.Bonuses, CashFlow{
		Date:   v.Date,
		Amount: grossValue,
		Memo:   fmt.Sprintf("RSU Lapse (%s)", v.Symbol),
	})

	p.rep.AWVEntries = append(p.rep.AWVEntries,
		awvRSUBonus(v.Date, v.Symbol, grossValue),
		awvRSUDeposit(v.Date, v.Symbol, v.GrossQuantity, grossValue),
	)
	if v.WithheldQuantity().IsPositive() {
		withheldValue := v.FairMarketValue.Mul(v.WithheldQuantity())
		p.rep.AWVEntries = append(p.rep.AWVEntries,
			awvRSUTaxWithholding(v.Date, v.Symbol, v.WithheldQuantity(), withheldValue))
	}
	return nil
}

func (p *processor) applyESPP(v ESPPPurchase) error {
	if err := p.queue(v.Symbol, VariantESPP).open(lot{
		BuyDate:  v.Date,
		Quantity: v.Quantity,
		UnitCost: v.FairMarketValue,
		Source:   "ESPP Purchase",
	}); err != nil {
		return err
	}

	p.rep.Bonuses = append(p.rep.Bonuses, CashFlow{
		Date:   v.Date,
		Amount: v.Bonus(),
		Memo:   fmt.Sprintf("ESPP Bonus (%s)", v.Symbol),
	})
	p.rep.AWVEntries = append(p.rep.AWVEntries,
		awvESPPBonus(v.Date, v.Symbol, v.Bonus()),
		awvESPPDeposit(v.Date, v.Symbol, v.Quantity, v.FairMarketValue.Mul(v.Quantity)),
	)
	return nil
}

// finish snapshots the closing balances and open lots into the report.
func (p *processor) finish(years map[int]struct{}) {
	p.rep.EURBalance = p.cash.balance(EUR)
	p.rep.Positions = p.cash.positions()

	keys := make([]lotKey, 0, len(p.held))
	for k := range p.held {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Variant < keys[j].Variant
	})
	for _, k := range keys {
		for _, l := range p.held[k].openLots() {
			p.rep.OpenLots = append(p.rep.OpenLots, OpenLot{
				Symbol:   k.Symbol,
				Variant:  k.Variant,
				BuyDate:  l.BuyDate,
				Quantity: l.Quantity,
				UnitCost: l.UnitCost,
			})
		}
	}

	p.rep.Years = make([]int, 0, len(years))
	for y := range years {
		p.rep.Years = append(p.rep.Years, y)
	}
	sort.Ints(p.rep.Years)
}
