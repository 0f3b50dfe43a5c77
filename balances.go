package fifotax

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CurrencyPosition is one dated sub-balance of a foreign currency, suitable
// for carry-forward into a subsequent run's opening deposits.
type CurrencyPosition struct {
	Currency string   `json:"currency"`
	BuyDate  Date     `json:"buy_date"`
	Amount   Quantity `json:"amount"`
	TaxFree  bool     `json:"tax_free,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface for CurrencyPosition.
func (p CurrencyPosition) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("currency", p.Currency)
	w.Append("buy_date", p.BuyDate)
	w.Append("amount", p.Amount)
	w.Optional("tax_free", p.TaxFree)
	w.Optional("source", p.Source)
	return w.MarshalJSON()
}

// balances tracks cash: one FIFO queue per foreign currency (withdrawing or
// exchanging foreign currency is itself tax-matched against its acquisition
// date and rate) plus a single scalar EUR balance. EUR has no
// acquisition-date-dependent tax treatment, and its balance is the only one
// allowed to go negative, to tolerate imprecise exchange bookkeeping.
type balances struct {
	eur     decimal.Decimal
	foreign map[string]*lotQueue
}

func newBalances() *balances {
	return &balances{foreign: make(map[string]*lotQueue)}
}

func (b *balances) queue(currency string) *lotQueue {
	q, ok := b.foreign[currency]
	if !ok {
		q = newLotQueue(lotKey{Symbol: currency})
		b.foreign[currency] = q
	}
	return q
}

// credit adds amount to the currency's balance. Foreign currency opens a
// dated sub-balance; a unit of currency "costs" one unit of itself.
func (b *balances) credit(amount Money, buyDate Date, taxFree bool, source string) error {
	if amount.Currency() == EUR {
		b.eur = b.eur.Add(amount.Amount())
		return nil
	}
	return b.queue(amount.Currency()).open(lot{
		BuyDate:  buyDate,
		Quantity: Q(amount.Amount()),
		UnitCost: M(decimal.NewFromInt(1), amount.Currency()),
		TaxFree:  taxFree,
		Source:   source,
	})
}

// debit removes amount from the currency's balance on the given date. For
// foreign currencies it closes dated sub-balances FIFO and returns the
// matched pairs; driving a foreign balance negative is an
// InsufficientBalanceError. The EUR balance is debited unchecked and returns
// no pairs.
func (b *balances) debit(amount Money, on Date) ([]MatchedPair, error) {
	if amount.Currency() == EUR {
		b.eur = b.eur.Sub(amount.Amount())
		return nil, nil
	}
	unitProceeds := M(decimal.NewFromInt(1), amount.Currency())
	return b.queue(amount.Currency()).close(Q(amount.Amount()), on, unitProceeds, Money{})
}

// balance returns the current total for one currency.
func (b *balances) balance(currency string) Money {
	if currency == EUR {
		return M(b.eur, EUR)
	}
	q, ok := b.foreign[currency]
	if !ok {
		return M(decimal.Zero, currency)
	}
	return M(q.Total().Decimal(), currency)
}

// positions returns every remaining dated foreign sub-balance, sorted by
// currency then acquisition date, for carry-forward into the next period.
func (b *balances) positions() []CurrencyPosition {
	currencies := make([]string, 0, len(b.foreign))
	for c := range b.foreign {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	var out []CurrencyPosition
	for _, c := range currencies {
		for _, l := range b.foreign[c].openLots() {
			out = append(out, CurrencyPosition{
				Currency: c,
				BuyDate:  l.BuyDate,
				Amount:   l.Quantity,
				TaxFree:  l.TaxFree,
				Source:   l.Source,
			})
		}
	}
	return out
}
