package fifotax

import "sort"

// Ordering assigns a same-day processing priority to an event; lower runs
// first. It is the single, swappable policy that resolves ambiguous same-day
// sequences.
type Ordering func(Event) int

// DefaultOrdering orders events within one calendar day so that the common
// real-world sequence (fund the account, then trade) succeeds:
// compensation deposits first, then dividends, cash deposits, buys, sells,
// currency exchanges, withdrawals, and stock splits last (splits take effect
// after market close).
//
// The table is fixed and never inspects balances. A buy funded by the
// proceeds of a same-day sale therefore still fails with
// InsufficientBalanceError, because buys always run before sells within a
// day; correcting the input dates is the caller's job.
func DefaultOrdering(e Event) int {
	switch e.What() {
	case KindRSUDeposit, KindESPPPurchase:
		return 0
	case KindDividend:
		return 1
	case KindDeposit:
		return 2
	case KindBuy:
		return 3
	case KindSell:
		return 4
	case KindCurrencyExchange:
		return 5
	case KindWithdrawal:
		return 6
	case KindStockSplit:
		return 7
	default:
		return 8
	}
}

// sortEvents returns a copy of events in total processing order: strictly
// ascending by date, then by the ordering policy, input order preserved for
// ties. The stable tie-break makes re-runs on identical input produce
// identical results.
func sortEvents(events []Event, ord Ordering) []Event {
	if ord == nil {
		ord = DefaultOrdering
	}
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].When().Compare(sorted[j].When()); c != 0 {
			return c < 0
		}
		return ord(sorted[i]) < ord(sorted[j])
	})
	return sorted
}
