package fifotax

import "github.com/shopspring/decimal"

// SplitAdjustment records one stock split of a symbol, effective after close
// of the effective date. Ratio is post-split shares per pre-split share.
type SplitAdjustment struct {
	Symbol    string          `json:"symbol"`
	Effective Date            `json:"effective"`
	Ratio     decimal.Decimal `json:"ratio"`
}

// SplitResolver supplies the historical splits of a symbol, oldest first.
// When no resolver is configured, splits are caller-managed through
// StockSplit events.
//
// Caution: historical split data can double-count with quantities the caller
// has already adjusted manually. The engine does not detect this overlap;
// enable split resolution only for inputs recorded in original, unadjusted
// quantities.
type SplitResolver interface {
	Splits(symbol string) ([]SplitAdjustment, error)
}

// splitBook applies SplitAdjustments to lot queues exactly once each.
// Adjustments are tracked by identity (symbol, date, ratio), so feeding the
// identical adjustment set twice is a no-op.
type splitBook struct {
	applied map[string]struct{}
}

func newSplitBook() *splitBook {
	return &splitBook{applied: make(map[string]struct{})}
}

func (b *splitBook) apply(adj SplitAdjustment, queues map[lotKey]*lotQueue) error {
	if !adj.Ratio.IsPositive() {
		return &InvalidSplitRatioError{Symbol: adj.Symbol, On: adj.Effective, Ratio: adj.Ratio.String()}
	}
	id := adj.Symbol + "|" + adj.Effective.String() + "|" + adj.Ratio.String()
	if _, done := b.applied[id]; done {
		return nil
	}
	b.applied[id] = struct{}{}

	// All variants of the symbol split alike.
	for key, q := range queues {
		if key.Symbol == adj.Symbol {
			q.applySplit(adj.Effective, adj.Ratio)
		}
	}
	return nil
}
