package fifotax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EventKind is a typed string identifying a normalized event.
type EventKind string

// Event kinds produced by the broker-format converters.
const (
	KindDeposit          EventKind = "deposit"
	KindWithdrawal       EventKind = "withdrawal"
	KindBuy              EventKind = "buy"
	KindSell             EventKind = "sell"
	KindDividend         EventKind = "dividend"
	KindCurrencyExchange EventKind = "exchange"
	KindStockSplit       EventKind = "stock-split"
	KindRSUDeposit       EventKind = "rsu-deposit"
	KindESPPPurchase     EventKind = "espp-purchase"
)

// Variant distinguishes compensation-derived holdings from open-market
// purchases of the same underlying ticker. Each (symbol, variant) pair owns
// an independent FIFO queue; variants are never cross-matched.
type Variant string

const (
	VariantOpenMarket Variant = ""
	VariantESPP       Variant = "espp"
	VariantRSU        Variant = "rsu"
)

// Event is the common interface of all normalized financial events consumed
// by the engine. Events are immutable once constructed.
type Event interface {
	What() EventKind // What returns the kind of the event.
	When() Date      // When returns the calendar date of the event.
	Validate() error
}

type baseEvent struct {
	Kind EventKind `json:"kind"`
	Date Date      `json:"date"`
	Memo string    `json:"memo,omitempty"` // optional free-form note carried through to reports
}

// What returns the kind of the event.
func (e baseEvent) What() EventKind { return e.Kind }

// When returns the calendar date of the event.
func (e baseEvent) When() Date { return e.Date }

func (e baseEvent) validate() error {
	if e.Date.IsZero() {
		return errors.New("event date is missing")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for baseEvent.
func (e baseEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("kind", e.Kind)
	w.Append("date", e.Date)
	w.Optional("memo", e.Memo)
	return w.MarshalJSON()
}

// secEvent is a component for share-based events.
type secEvent struct {
	baseEvent
	Symbol string `json:"symbol"` // Symbol is the ticker of the security involved.
}

func (e secEvent) validate() error {
	if err := e.baseEvent.validate(); err != nil {
		return err
	}
	if e.Symbol == "" {
		return errors.New("ticker symbol is missing")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for secEvent.
func (e secEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.baseEvent)
	w.Append("symbol", e.Symbol)
	return w.MarshalJSON()
}

// validateFee checks an optional fee against the event currency.
func validateFee(fee Money, currency string) error {
	if fee.IsZero() && fee.Currency() == "" {
		return nil
	}
	if fee.IsNegative() {
		return fmt.Errorf("fee must be non-negative, got %s", fee)
	}
	if fee.Currency() != "" && fee.Currency() != currency {
		return fmt.Errorf("fee currency %s does not match event currency %s", fee.Currency(), currency)
	}
	return nil
}

// Deposit represents cash arriving on the account. For foreign currencies the
// buy date drives later FIFO matching of withdrawals and exchanges; it
// defaults to the deposit date but may lie earlier when the money was
// acquired before it reached this account (carry-forward from a previous
// reporting period).
type Deposit struct {
	baseEvent
	Amount  Money `json:"amount"`
	BuyDate Date  `json:"buy_date,omitempty"`
	Fee     Money `json:"fee,omitempty"`
}

// NewDeposit creates a new Deposit event. A zero buyDate defaults to day.
func NewDeposit(day Date, memo string, amount Money, buyDate Date) Deposit {
	if buyDate.IsZero() {
		buyDate = day
	}
	return Deposit{
		baseEvent: baseEvent{Kind: KindDeposit, Date: day, Memo: memo},
		Amount:    amount,
		BuyDate:   buyDate,
	}
}

func (e Deposit) Validate() error {
	if err := e.baseEvent.validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive, got %s", e.Amount)
	}
	if err := ValidateCurrency(e.Amount.Currency()); err != nil {
		return fmt.Errorf("invalid currency for deposit: %w", err)
	}
	if !e.BuyDate.IsZero() && e.BuyDate.After(e.Date) {
		return fmt.Errorf("deposit buy date %s is after the deposit date %s", e.BuyDate, e.Date)
	}
	return validateFee(e.Fee, e.Amount.Currency())
}

// MarshalJSON implements the json.Marshaler interface for Deposit.
func (e Deposit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.baseEvent)
	w.Append("amount", e.Amount)
	if e.BuyDate != e.Date {
		w.Optional("buy_date", e.BuyDate)
	}
	w.Optional("fee", e.Fee)
	return w.MarshalJSON()
}

// Withdrawal represents cash leaving the account. Foreign-currency
// withdrawals are matched FIFO against the currency's acquisition queue and
// reported as carry-forward records; EUR withdrawals only move the scalar
// EUR balance.
type Withdrawal struct {
	baseEvent
	Amount Money `json:"amount"`
	Fee    Money `json:"fee,omitempty"`
}

// NewWithdrawal creates a new Withdrawal event.
func NewWithdrawal(day Date, memo string, amount Money) Withdrawal {
	return Withdrawal{
		baseEvent: baseEvent{Kind: KindWithdrawal, Date: day, Memo: memo},
		Amount:    amount,
	}
}

func (e Withdrawal) Validate() error {
	if err := e.baseEvent.validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("withdrawal amount must be positive, got %s", e.Amount)
	}
	if err := ValidateCurrency(e.Amount.Currency()); err != nil {
		return fmt.Errorf("invalid currency for withdrawal: %w", err)
	}
	return validateFee(e.Fee, e.Amount.Currency())
}

// MarshalJSON implements the json.Marshaler interface for Withdrawal.
func (e Withdrawal) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.baseEvent)
	w.Append("amount", e.Amount)
	w.Optional("fee", e.Fee)
	return w.MarshalJSON()
}

// Buy represents an open-market purchase of shares, funded from the currency
// balance of the purchase currency.
type Buy struct {
	secEvent
	Quantity Quantity `json:"quantity"`
	Price    Money    `json:"price"` // price per share, native currency
	Fee      Money    `json:"fee,omitempty"`
}

// NewBuy creates a new Buy event.
func NewBuy(day Date, memo, symbol string, quantity Quantity, price, fee Money) Buy {
	return Buy{
		secEvent: secEvent{baseEvent: baseEvent{Kind: KindBuy, Date: day, Memo: memo}, Symbol: symbol},
		Quantity: quantity,
		Price:    price,
		Fee:      fee,
	}
}

func (e Buy) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if !e.Quantity.IsPositive() {
		return fmt.Errorf("buy quantity must be positive, got %s", e.Quantity)
	}
	if !e.Price.IsPositive() {
		return fmt.Errorf("buy price must be positive, got %s", e.Price)
	}
	if err := ValidateCurrency(e.Price.Currency()); err != nil {
		return fmt.Errorf("invalid currency for buy: %w", err)
	}
	return validateFee(e.Fee, e.Price.Currency())
}

// MarshalJSON implements the json.Marshaler interface for Buy.
func (e Buy) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Append("quantity", e.Quantity)
	w.Append("price", e.Price)
	w.Optional("fee", e.Fee)
	return w.MarshalJSON()
}

// Sell represents a disposal of shares. The variant selects which holding
// queue of the symbol the sale is matched against; compensation-derived and
// open-market holdings never cross-match.
type Sell struct {
	secEvent
	Variant  Variant  `json:"variant,omitempty"`
	Quantity Quantity `json:"quantity"`
	Price    Money    `json:"price"` // price per share, native currency
	Fee      Money    `json:"fee,omitempty"`
}

// NewSell creates a new Sell event against the open-market queue.
func NewSell(day Date, memo, symbol string, quantity Quantity, price, fee Money) Sell {
	return NewVariantSell(day, memo, symbol, VariantOpenMarket, quantity, price, fee)
}

// NewVariantSell creates a new Sell event against a specific holding queue.
func NewVariantSell(day Date, memo, symbol string, variant Variant, quantity Quantity, price, fee Money) Sell {
	return Sell{
		secEvent: secEvent{baseEvent: baseEvent{Kind: KindSell, Date: day, Memo: memo}, Symbol: symbol},
		Variant:  variant,
		Quantity: quantity,
		Price:    price,
		Fee:      fee,
	}
}

func (e Sell) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if !e.Quantity.IsPositive() {
		return fmt.Errorf("sell quantity must be positive, got %s", e.Quantity)
	}
	if !e.Price.IsPositive() {
		return fmt.Errorf("sell price must be positive, got %s", e.Price)
	}
	if err := ValidateCurrency(e.Price.Currency()); err != nil {
		return fmt.Errorf("invalid currency for sell: %w", err)
	}
	return validateFee(e.Fee, e.Price.Currency())
}

// MarshalJSON implements the json.Marshaler interface for Sell.
func (e Sell) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Optional("variant", e.Variant)
	w.Append("quantity", e.Quantity)
	w.Append("price", e.Price)
	w.Optional("fee", e.Fee)
	return w.MarshalJSON()
}

// Dividend represents a dividend payment for a held security. Amount is the
// gross payment; the net amount (gross minus withheld tax) is credited to the
// currency queue. A negative amount models charges booked as negative
// dividends in times of negative interest rates.
type Dividend struct {
	secEvent
	Amount      Money `json:"amount"`
	WithheldTax Money `json:"withheld_tax,omitempty"`
}

// NewDividend creates a new Dividend event.
func NewDividend(day Date, memo, symbol string, amount, withheldTax Money) Dividend {
	return Dividend{
		secEvent:    secEvent{baseEvent: baseEvent{Kind: KindDividend, Date: day, Memo: memo}, Symbol: symbol},
		Amount:      amount,
		WithheldTax: withheldTax,
	}
}

func (e Dividend) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if e.Amount.IsZero() {
		return errors.New("dividend amount cannot be zero")
	}
	if err := ValidateCurrency(e.Amount.Currency()); err != nil {
		return fmt.Errorf("invalid currency for dividend: %w", err)
	}
	if e.WithheldTax.IsNegative() {
		return fmt.Errorf("withheld tax must be non-negative, got %s", e.WithheldTax)
	}
	if !e.WithheldTax.IsZero() && e.WithheldTax.Currency() != e.Amount.Currency() {
		return fmt.Errorf("withheld tax currency %s does not match dividend currency %s",
			e.WithheldTax.Currency(), e.Amount.Currency())
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Dividend.
func (e Dividend) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Append("amount", e.Amount)
	w.Optional("withheld_tax", e.WithheldTax)
	return w.MarshalJSON()
}

// CurrencyExchange represents a conversion between two currencies. Either
// both sides carry explicit amounts, or exactly one side is unknown; an
// unknown side must be the EUR side, and the engine resolves it from the
// daily historical rate of the known side's currency. This trades exact
// balance accuracy for reduced data-entry burden and is a deliberate design
// choice.
type CurrencyExchange struct {
	baseEvent
	From NullMoney `json:"from"`
	To   NullMoney `json:"to"`
	Fee  Money     `json:"fee,omitempty"` // fee in the source currency
}

// NewCurrencyExchange creates a conversion with both sides known.
func NewCurrencyExchange(day Date, memo string, from, to Money) CurrencyExchange {
	return CurrencyExchange{
		baseEvent: baseEvent{Kind: KindCurrencyExchange, Date: day, Memo: memo},
		From:      KnownAmount(from),
		To:        KnownAmount(to),
	}
}

// NewExchangeToEUR converts a foreign amount into EUR, leaving the EUR side
// to be resolved from the historical rate.
func NewExchangeToEUR(day Date, memo string, from Money) CurrencyExchange {
	return CurrencyExchange{
		baseEvent: baseEvent{Kind: KindCurrencyExchange, Date: day, Memo: memo},
		From:      KnownAmount(from),
		To:        UnknownAmount(EUR),
	}
}

// NewExchangeFromEUR buys a foreign amount with EUR, leaving the EUR side to
// be resolved from the historical rate.
func NewExchangeFromEUR(day Date, memo string, to Money) CurrencyExchange {
	return CurrencyExchange{
		baseEvent: baseEvent{Kind: KindCurrencyExchange, Date: day, Memo: memo},
		From:      UnknownAmount(EUR),
		To:        KnownAmount(to),
	}
}

func (e CurrencyExchange) Validate() error {
	if err := e.baseEvent.validate(); err != nil {
		return err
	}
	if err := ValidateCurrency(e.From.Currency()); err != nil {
		return fmt.Errorf("invalid 'from' currency: %w", err)
	}
	if err := ValidateCurrency(e.To.Currency()); err != nil {
		return fmt.Errorf("invalid 'to' currency: %w", err)
	}
	if e.From.Currency() == e.To.Currency() {
		return fmt.Errorf("cannot convert to the same currency: %s", e.From.Currency())
	}
	if !e.From.Valid && !e.To.Valid {
		return errors.New("at most one side of an exchange may be unknown")
	}
	if !e.From.Valid && e.From.Currency() != EUR {
		return fmt.Errorf("unknown exchange side must be EUR, got %s", e.From.Currency())
	}
	if !e.To.Valid && e.To.Currency() != EUR {
		return fmt.Errorf("unknown exchange side must be EUR, got %s", e.To.Currency())
	}
	if e.From.Valid && !e.From.Money.IsPositive() {
		return fmt.Errorf("exchange 'from' amount must be positive, got %s", e.From.Money)
	}
	if e.To.Valid && !e.To.Money.IsPositive() {
		return fmt.Errorf("exchange 'to' amount must be positive, got %s", e.To.Money)
	}
	return validateFee(e.Fee, e.From.Currency())
}

// MarshalJSON implements the json.Marshaler interface for CurrencyExchange.
func (e CurrencyExchange) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.baseEvent)
	w.Append("from", e.From)
	w.Append("to", e.To)
	w.Optional("fee", e.Fee)
	return w.MarshalJSON()
}

// StockSplit represents a split of the given symbol effective after close of
// the event date. Ratio is the number of post-split shares per pre-split
// share, e.g. 4 for a 4:1 split, 1.5 for 3:2, 0.5 for a 1:2 reverse split.
type StockSplit struct {
	secEvent
	Ratio decimal.Decimal `json:"ratio"`
}

// NewStockSplit creates a new StockSplit event.
func NewStockSplit(day Date, symbol string, ratio decimal.Decimal) StockSplit {
	return StockSplit{
		secEvent: secEvent{baseEvent: baseEvent{Kind: KindStockSplit, Date: day}, Symbol: symbol},
		Ratio:    ratio,
	}
}

func (e StockSplit) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if !e.Ratio.IsPositive() {
		return &InvalidSplitRatioError{Symbol: e.Symbol, On: e.Date, Ratio: e.Ratio.String()}
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for StockSplit.
func (e StockSplit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Append("ratio", e.Ratio)
	return w.MarshalJSON()
}

// RSUDeposit represents the lapse of restricted stock units. The gross
// quantity vests; the withheld part (gross minus net) is sold immediately by
// the broker to settle income tax, and only the net quantity opens a lot in
// the RSU queue, at the fair market value of the lapse date.
type RSUDeposit struct {
	secEvent
	GrossQuantity   Quantity `json:"gross_quantity"`
	NetQuantity     Quantity `json:"net_quantity"`
	FairMarketValue Money    `json:"fair_market_value"` // per share
}

// NewRSUDeposit creates a new RSUDeposit event.
func NewRSUDeposit(day Date, memo, symbol string, gross, net Quantity, fmv Money) RSUDeposit {
	return RSUDeposit{
		secEvent:        secEvent{baseEvent: baseEvent{Kind: KindRSUDeposit, Date: day, Memo: memo}, Symbol: symbol},
		GrossQuantity:   gross,
		NetQuantity:     net,
		FairMarketValue: fmv,
	}
}

func (e RSUDeposit) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if !e.NetQuantity.IsPositive() {
		return fmt.Errorf("RSU net quantity must be positive, got %s", e.NetQuantity)
	}
	if e.GrossQuantity.LessThan(e.NetQuantity) {
		return fmt.Errorf("RSU gross quantity %s is less than net quantity %s", e.GrossQuantity, e.NetQuantity)
	}
	if !e.FairMarketValue.IsPositive() {
		return fmt.Errorf("RSU fair market value must be positive, got %s", e.FairMarketValue)
	}
	return ValidateCurrency(e.FairMarketValue.Currency())
}

// WithheldQuantity returns the share count sold by the broker for tax
// settlement.
func (e RSUDeposit) WithheldQuantity() Quantity { return e.GrossQuantity.Sub(e.NetQuantity) }

// MarshalJSON implements the json.Marshaler interface for RSUDeposit.
func (e RSUDeposit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Append("gross_quantity", e.GrossQuantity)
	w.Append("net_quantity", e.NetQuantity)
	w.Append("fair_market_value", e.FairMarketValue)
	return w.MarshalJSON()
}

// ESPPPurchase represents a purchase under an employee stock purchase plan.
// The employee contributes quantity times the discounted purchase price; the
// difference to the fair market value is a taxable bonus. The lot opens in
// the ESPP queue at fair market value.
type ESPPPurchase struct {
	secEvent
	Quantity        Quantity `json:"quantity"`
	FairMarketValue Money    `json:"fair_market_value"` // per share
	PurchasePrice   Money    `json:"purchase_price"`    // discounted price per share
}

// NewESPPPurchase creates a new ESPPPurchase event.
func NewESPPPurchase(day Date, memo, symbol string, quantity Quantity, fmv, price Money) ESPPPurchase {
	return ESPPPurchase{
		secEvent:        secEvent{baseEvent: baseEvent{Kind: KindESPPPurchase, Date: day, Memo: memo}, Symbol: symbol},
		Quantity:        quantity,
		FairMarketValue: fmv,
		PurchasePrice:   price,
	}
}

func (e ESPPPurchase) Validate() error {
	if err := e.secEvent.validate(); err != nil {
		return err
	}
	if !e.Quantity.IsPositive() {
		return fmt.Errorf("ESPP quantity must be positive, got %s", e.Quantity)
	}
	if !e.FairMarketValue.IsPositive() {
		return fmt.Errorf("ESPP fair market value must be positive, got %s", e.FairMarketValue)
	}
	if !e.PurchasePrice.IsPositive() {
		return fmt.Errorf("ESPP purchase price must be positive, got %s", e.PurchasePrice)
	}
	if e.PurchasePrice.Currency() != e.FairMarketValue.Currency() {
		return fmt.Errorf("ESPP purchase price currency %s does not match fair market value currency %s",
			e.PurchasePrice.Currency(), e.FairMarketValue.Currency())
	}
	if e.FairMarketValue.LessThan(e.PurchasePrice) {
		return fmt.Errorf("ESPP purchase price %s exceeds fair market value %s", e.PurchasePrice, e.FairMarketValue)
	}
	return ValidateCurrency(e.FairMarketValue.Currency())
}

// Bonus returns the taxable benefit: (fair market value - purchase price) x quantity.
func (e ESPPPurchase) Bonus() Money {
	return e.FairMarketValue.Sub(e.PurchasePrice).Mul(e.Quantity)
}

// Contribution returns the employee's own payment: purchase price x quantity.
func (e ESPPPurchase) Contribution() Money { return e.PurchasePrice.Mul(e.Quantity) }

// MarshalJSON implements the json.Marshaler interface for ESPPPurchase.
func (e ESPPPurchase) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.secEvent)
	w.Append("quantity", e.Quantity)
	w.Append("fair_market_value", e.FairMarketValue)
	w.Append("purchase_price", e.PurchasePrice)
	return w.MarshalJSON()
}
