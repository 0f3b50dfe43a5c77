package fifotax

import (
	"encoding/json"
	"testing"
)

func TestMoney_Arithmetic(t *testing.T) {
	if got := usd(100).Add(usd(25)); !got.Equal(usd(125)) {
		t.Errorf("Add = %s", got)
	}
	if got := usd(100).Sub(usd(25)); !got.Equal(usd(75)) {
		t.Errorf("Sub = %s", got)
	}
	if got := usd(50).Mul(Q(4)); !got.Equal(usd(200)) {
		t.Errorf("Mul = %s", got)
	}
	if got := usd(200).Div(Q(4)); !got.Equal(usd(50)) {
		t.Errorf("Div = %s", got)
	}
}

func TestMoney_AddMismatchedCurrenciesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("adding USD and GBP must panic")
		}
	}()
	usd(1).Add(M(1, "GBP"))
}

func TestMoney_WeakCurrencyMerges(t *testing.T) {
	// A zero Money has no currency and merges with any.
	var fee Money
	if got := usd(100).Add(fee); !got.Equal(usd(100)) || got.Currency() != "USD" {
		t.Errorf("Add zero = %s %s", got, got.Currency())
	}
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	in := usd(1234.56)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"amount":1234.56,"currency":"USD"}` {
		t.Errorf("marshaled = %s", data)
	}
	var out Money
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}

func TestNullMoney(t *testing.T) {
	known := KnownAmount(usd(100))
	if !known.Valid || known.Currency() != "USD" {
		t.Errorf("known = %+v", known)
	}
	unknown := UnknownAmount(EUR)
	if unknown.Valid {
		t.Error("unknown amount must not be valid")
	}
	if unknown.Currency() != EUR {
		t.Errorf("unknown currency = %s, want EUR", unknown.Currency())
	}
}

func TestValidateCurrency(t *testing.T) {
	if err := ValidateCurrency("USD"); err != nil {
		t.Errorf("USD: %v", err)
	}
	if err := ValidateCurrency("XYZ"); err == nil {
		t.Error("XYZ must be rejected")
	}
}
