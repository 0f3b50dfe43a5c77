package fifotax

import "fmt"

// InsufficientBalanceError reports a sell, withdrawal or exchange that
// requests more than the relevant queue holds on the event date. It is fatal
// to the run; the caller must correct the event list and re-run.
//
// A buy funded by the proceeds of a same-day sale surfaces as this error too:
// the same-day ordering policy follows a fixed priority table and never
// inspects balances (see DefaultOrdering).
type InsufficientBalanceError struct {
	Date      Date
	Symbol    string // ticker, or currency code for a currency queue
	Requested Quantity
	Available Quantity
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("on %s, cannot dispose of %s %s, only %s available",
		e.Date, e.Requested, e.Symbol, e.Available)
}

// MissingRateError reports that the rate resolver has no entry for a required
// date and currency. Fatal.
type MissingRateError struct {
	Currency string
	On       Date
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no %s exchange rate for %s", e.Currency, e.On)
}

// InvalidSplitRatioError reports a stock split with a non-positive ratio.
// Fatal.
type InvalidSplitRatioError struct {
	Symbol string
	On     Date
	Ratio  string
}

func (e *InvalidSplitRatioError) Error() string {
	return fmt.Sprintf("invalid split ratio %s for %s on %s, must be positive",
		e.Ratio, e.Symbol, e.On)
}
