package fifotax

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// EUR is the domestic currency of every report this package produces.
const EUR = "EUR"

// Money represents an exact monetary value in a single currency.
type Money struct {
	value decimal.Decimal // major unit value
	cur   string
}

// M creates a Money from a numeric value and an ISO-4217 currency code.
func M[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// ValidateCurrency reports whether code is a known ISO-4217 currency code.
func ValidateCurrency(code string) error {
	if code == "" {
		return fmt.Errorf("currency code is missing")
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}

// currency returns the full currency metadata, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// String returns the money value formatted with its currency symbol, rounded
// to the currency's minor unit. Display only: internal arithmetic is exact.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string             { return m.cur }
func (m Money) Amount() decimal.Decimal      { return m.value }
func (m Money) Equal(n Money) bool           { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                 { return m.value.IsZero() }
func (m Money) IsPositive() bool             { return m.value.IsPositive() }
func (m Money) IsNegative() bool             { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool        { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool     { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                   { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money         { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money         { return Money{value: m.value.Div(q.value), cur: m.cur} }
func (m Money) DivRatio(r decimal.Decimal) Money {
	return Money{value: m.value.Div(r), cur: m.cur}
}

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}

// SignedString returns the string representation with an explicit sign,
// and "-" for zero.
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// MarshalJSON emits the money as {"amount": ..., "currency": ...} with the
// amount in full digits.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("amount", m.value)
	w.Optional("currency", m.cur)
	return w.MarshalJSON()
}

// UnmarshalJSON parses {"amount": ..., "currency": ...}.
func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	m.value = temp.Amount
	m.cur = temp.Currency
	return nil
}

// NullMoney is a Money that may be unknown. Currency exchanges to or from EUR
// may leave the EUR side unresolved; the engine then computes it from the
// historical rate. An explicit validity flag replaces the "-1 means don't
// care" convention so an unknown side can never be mistaken for a real amount.
type NullMoney struct {
	Money Money
	Valid bool
}

// KnownAmount wraps a resolved amount.
func KnownAmount(m Money) NullMoney { return NullMoney{Money: m, Valid: true} }

// UnknownAmount marks the side in the given currency as to-be-resolved.
func UnknownAmount(currency string) NullMoney {
	return NullMoney{Money: Money{cur: currency}, Valid: false}
}

// Currency returns the currency code of the (possibly unknown) amount.
func (n NullMoney) Currency() string { return n.Money.Currency() }

// MarshalJSON emits the amount, or {"currency": ..., "unknown": true} for an
// unresolved side.
func (n NullMoney) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return n.Money.MarshalJSON()
	}
	var w jsonObjectWriter
	w.Optional("currency", n.Money.cur)
	w.Append("unknown", true)
	return w.MarshalJSON()
}

// UnmarshalJSON parses either a plain money object or an unknown-side marker.
func (n *NullMoney) UnmarshalJSON(data []byte) error {
	var temp struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Unknown  bool            `json:"unknown"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	n.Money = Money{value: temp.Amount, cur: temp.Currency}
	n.Valid = !temp.Unknown
	return nil
}
