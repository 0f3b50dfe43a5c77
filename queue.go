package fifotax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// lotKey identifies one FIFO queue: a ticker plus the holding variant, or a
// currency code with the open-market variant for currency queues.
type lotKey struct {
	Symbol  string
	Variant Variant
}

func (k lotKey) String() string {
	if k.Variant == VariantOpenMarket {
		return k.Symbol
	}
	return k.Symbol + "/" + string(k.Variant)
}

// lot is a quantity of a single symbol acquired on a specific date at a
// specific per-unit cost basis in its native currency. Lots are consumed
// head-first; a lot's remaining quantity only ever decreases.
type lot struct {
	BuyDate  Date
	Quantity Quantity
	UnitCost Money
	TaxFree  bool   // forex acquired through dividends, excluded from forex gains on request
	Source   string // provenance note, carried into reports
}

// MatchedPair is the result of resolving sell or withdrawal demand against
// one open lot: one closing event may produce several pairs with different
// acquisition dates and therefore different holding periods and exchange
// rates. Pairs are immutable once produced.
type MatchedPair struct {
	Symbol       string   `json:"symbol"`
	Variant      Variant  `json:"variant,omitempty"`
	Quantity     Quantity `json:"quantity"`
	BuyDate      Date     `json:"buy_date"`
	SellDate     Date     `json:"sell_date"`
	UnitCost     Money    `json:"unit_cost"`
	UnitProceeds Money    `json:"unit_proceeds"`
	Fee          Money    `json:"fee,omitempty"` // closing fee allocated to this pair, native currency
	TaxFree      bool     `json:"tax_free,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// Cost returns the total native cost basis of the pair.
func (p MatchedPair) Cost() Money { return p.UnitCost.Mul(p.Quantity) }

// Proceeds returns the total native proceeds of the pair.
func (p MatchedPair) Proceeds() Money { return p.UnitProceeds.Mul(p.Quantity) }

// HoldingDays returns the number of days between acquisition and disposal.
func (p MatchedPair) HoldingDays() int { return p.SellDate.Sub(p.BuyDate) }

// MarshalJSON implements the json.Marshaler interface for MatchedPair.
func (p MatchedPair) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", p.Symbol)
	w.Optional("variant", p.Variant)
	w.Append("quantity", p.Quantity)
	w.Append("buy_date", p.BuyDate)
	w.Append("sell_date", p.SellDate)
	w.Append("unit_cost", p.UnitCost)
	w.Append("unit_proceeds", p.UnitProceeds)
	w.Optional("fee", p.Fee)
	w.Optional("tax_free", p.TaxFree)
	w.Optional("source", p.Source)
	return w.MarshalJSON()
}

// lotQueue is the ordered collection of open lots for one lotKey. The
// ordering invariant is strictly ascending acquisition date, insertion order
// for ties; the oldest lot is always matched first.
//
// The queue keeps running totals of everything ever opened and matched so
// the conservation invariant (opened - matched == remaining) is checkable at
// any point.
type lotQueue struct {
	key     lotKey
	lots    []lot
	total   Quantity
	opened  Quantity
	matched Quantity
}

func newLotQueue(key lotKey) *lotQueue {
	return &lotQueue{key: key}
}

// Total returns the currently open quantity.
func (q *lotQueue) Total() Quantity { return q.total }

// open appends a lot, keeping the queue sorted by acquisition date. Deposits
// may carry a buy date earlier than already queued lots (carry-forward from a
// previous period), so insertion is positional, not always at the tail.
func (q *lotQueue) open(l lot) error {
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("cannot open a lot of %s %s, quantity must be positive", l.Quantity, q.key)
	}
	idx := 0
	for idx < len(q.lots) && !q.lots[idx].BuyDate.After(l.BuyDate) {
		idx++
	}
	q.lots = append(q.lots, lot{})
	copy(q.lots[idx+1:], q.lots[idx:])
	q.lots[idx] = l
	q.total = q.total.Add(l.Quantity)
	q.opened = q.opened.Add(l.Quantity)
	return nil
}

// close removes quantity from the head of the queue, splitting the last
// touched lot when it only partially covers the demand; the remainder stays
// queued under its original acquisition date. One MatchedPair is produced per
// lot consumed. feePerUnit allocates the closing event's fee across pairs.
func (q *lotQueue) close(quantity Quantity, on Date, unitProceeds Money, feePerUnit Money) ([]MatchedPair, error) {
	if quantity.IsZero() {
		return nil, nil
	}
	if quantity.IsNegative() {
		return nil, &InsufficientBalanceError{Date: on, Symbol: q.key.String(), Requested: quantity, Available: q.total}
	}
	if q.total.LessThan(quantity) {
		return nil, &InsufficientBalanceError{Date: on, Symbol: q.key.String(), Requested: quantity, Available: q.total}
	}

	var pairs []MatchedPair
	remaining := quantity
	for remaining.IsPositive() {
		head := &q.lots[0]
		if head.BuyDate.After(on) {
			// The quantity exists in the queue but was not yet acquired on the
			// disposal date.
			available := quantity.Sub(remaining)
			return nil, &InsufficientBalanceError{Date: on, Symbol: q.key.String(), Requested: quantity, Available: available}
		}

		take := head.Quantity
		if remaining.LessThan(take) {
			take = remaining
		}
		pairs = append(pairs, MatchedPair{
			Symbol:       q.key.Symbol,
			Variant:      q.key.Variant,
			Quantity:     take,
			BuyDate:      head.BuyDate,
			SellDate:     on,
			UnitCost:     head.UnitCost,
			UnitProceeds: unitProceeds,
			Fee:          feePerUnit.Mul(take),
			TaxFree:      head.TaxFree,
			Source:       head.Source,
		})

		head.Quantity = head.Quantity.Sub(take)
		if head.Quantity.IsZero() {
			q.lots = q.lots[1:]
		}
		remaining = remaining.Sub(take)
	}
	q.total = q.total.Sub(quantity)
	q.matched = q.matched.Add(quantity)
	return pairs, nil
}

// applySplit scales every open lot acquired strictly before the effective
// date: quantity times ratio, per-unit cost divided by ratio, so the total
// native cost basis is invariant. Lots acquired on the effective date itself
// are already post-split (the split takes effect after close).
func (q *lotQueue) applySplit(effective Date, ratio decimal.Decimal) {
	q.total = Q(decimal.Zero)
	for i := range q.lots {
		if q.lots[i].BuyDate.Before(effective) {
			scaled := q.lots[i].Quantity.MulRatio(ratio)
			diff := scaled.Sub(q.lots[i].Quantity)
			q.lots[i].Quantity = scaled
			q.lots[i].UnitCost = q.lots[i].UnitCost.DivRatio(ratio)
			// keep the conservation invariant consistent with the rescale
			q.opened = q.opened.Add(diff)
		}
		q.total = q.total.Add(q.lots[i].Quantity)
	}
}

// openLots returns a copy of the remaining lots, oldest first.
func (q *lotQueue) openLots() []lot {
	out := make([]lot, len(q.lots))
	copy(out, q.lots)
	return out
}
