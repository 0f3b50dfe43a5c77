// Package fifotax computes capital gains, losses and income figures for
// cross-border share compensation (ESPP, RSU and open-market trades) and the
// associated currency movements, for annual German tax reporting.
//
// The engine consumes a set of normalized financial events (deposits,
// withdrawals, buys, sells, dividends, currency exchanges, stock splits),
// establishes a deterministic processing order, matches every disposal against
// open acquisitions in FIFO order, and produces matched buy/sell pairs,
// realized gains in EUR, final currency balances and AWV reporting flags.
//
// The engine itself is pure: it performs no I/O and owns no global state.
// Each call to Process builds an independent set of lot queues and balances,
// so several report years or rate modes can run in parallel. Exchange rates
// are supplied through the RateResolver interface; ECBRates implements it on
// top of the ECB eurofxref reference-rate history.
package fifotax
