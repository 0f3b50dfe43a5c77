package fifotax

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitBook_AppliesOncePerAdjustment(t *testing.T) {
	q := newLotQueue(lotKey{Symbol: "ACME"})
	q.open(lot{BuyDate: day("2024-01-10"), Quantity: Q(10), UnitCost: usd(100)})
	queues := map[lotKey]*lotQueue{q.key: q}

	book := newSplitBook()
	adj := SplitAdjustment{Symbol: "ACME", Effective: day("2024-06-01"), Ratio: decimal.NewFromInt(4)}

	if err := book.apply(adj, queues); err != nil {
		t.Fatal(err)
	}
	// Feeding the identical adjustment again must be a no-op.
	if err := book.apply(adj, queues); err != nil {
		t.Fatal(err)
	}
	if !q.Total().Equal(Q(40)) {
		t.Errorf("total = %s, want 40 after a single 4:1 split", q.Total())
	}
}

func TestSplitBook_AllVariantsSplitAlike(t *testing.T) {
	market := newLotQueue(lotKey{Symbol: "ACME"})
	market.open(lot{BuyDate: day("2024-01-10"), Quantity: Q(10), UnitCost: usd(100)})
	rsu := newLotQueue(lotKey{Symbol: "ACME", Variant: VariantRSU})
	rsu.open(lot{BuyDate: day("2024-02-01"), Quantity: Q(5), UnitCost: usd(110)})
	other := newLotQueue(lotKey{Symbol: "ZORG"})
	other.open(lot{BuyDate: day("2024-01-10"), Quantity: Q(7), UnitCost: usd(30)})
	queues := map[lotKey]*lotQueue{market.key: market, rsu.key: rsu, other.key: other}

	book := newSplitBook()
	err := book.apply(SplitAdjustment{Symbol: "ACME", Effective: day("2024-06-01"), Ratio: decimal.NewFromInt(2)}, queues)
	if err != nil {
		t.Fatal(err)
	}
	if !market.Total().Equal(Q(20)) || !rsu.Total().Equal(Q(10)) {
		t.Errorf("ACME totals = %s market, %s rsu, want 20 and 10", market.Total(), rsu.Total())
	}
	if !other.Total().Equal(Q(7)) {
		t.Errorf("ZORG total = %s, must be untouched", other.Total())
	}
}

func TestSplitBook_RejectsNonPositiveRatio(t *testing.T) {
	book := newSplitBook()
	err := book.apply(SplitAdjustment{Symbol: "ACME", Effective: day("2024-06-01"), Ratio: decimal.Zero}, nil)
	var bad *InvalidSplitRatioError
	if !errors.As(err, &bad) {
		t.Fatalf("got %v, want InvalidSplitRatioError", err)
	}
}
