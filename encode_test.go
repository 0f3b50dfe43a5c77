package fifotax

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEncodeDecodeEvents(t *testing.T) {
	events := []Event{
		NewDeposit(day("2024-01-05"), "initial funding", usd(1000), Date{}),
		NewBuy(day("2024-01-10"), "", "ACME", Q(10), usd(50), usd(5)),
		NewRSUDeposit(day("2024-02-15"), "", "ACME", Q(10), Q(6), usd(100)),
		NewDividend(day("2024-03-15"), "", "ACME", usd(100), usd(15)),
		NewExchangeToEUR(day("2024-04-01"), "", usd(500)),
		NewStockSplit(day("2024-05-01"), "ACME", decimal.NewFromInt(4)),
		NewVariantSell(day("2024-06-01"), "", "ACME", VariantRSU, Q(6), usd(120), Money{}),
		NewWithdrawal(day("2024-07-01"), "", usd(200)),
		NewESPPPurchase(day("2024-08-01"), "", "ACME", Q(20), usd(100), usd(85)),
	}

	var buf bytes.Buffer
	if err := EncodeEvents(&buf, events); err != nil {
		t.Fatal(err)
	}
	if got := len(strings.Split(strings.TrimSpace(buf.String()), "\n")); got != len(events) {
		t.Fatalf("encoded %d lines, want %d", got, len(events))
	}

	decoded, err := DecodeEvents(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(events) {
		t.Fatalf("decoded %d events, want %d", len(decoded), len(events))
	}

	// EncodeEvents writes in total order, so the stream starts at the deposit.
	dep, ok := decoded[0].(Deposit)
	if !ok {
		t.Fatalf("first decoded event is %T, want Deposit", decoded[0])
	}
	if !dep.Amount.Equal(usd(1000)) || dep.Memo != "initial funding" {
		t.Errorf("deposit = %+v", dep)
	}

	// A decoded stream must process identically to the original events.
	rates := usdRates(map[string]float64{"2024-04-01": 1.25})
	want, err := Process(events, Options{Rates: rates})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Process(decoded, Options{Rates: rates})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.SharePairs) != len(want.SharePairs) {
		t.Fatalf("share pairs differ: %d vs %d", len(got.SharePairs), len(want.SharePairs))
	}
	if !got.EURBalance.Equal(want.EURBalance) {
		t.Errorf("EUR balance differs: %s vs %s", got.EURBalance, want.EURBalance)
	}
}

func TestDecodeEvents_SkipsEmptyLines(t *testing.T) {
	in := `{"kind":"deposit","date":"2024-01-05","amount":{"amount":1000,"currency":"USD"}}

{"kind":"withdrawal","date":"2024-02-05","amount":{"amount":100,"currency":"USD"}}
`
	events, err := DecodeEvents(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestDecodeEvents_UnknownKind(t *testing.T) {
	if _, err := DecodeEvents(strings.NewReader(`{"kind":"margin-call","date":"2024-01-05"}`)); err == nil {
		t.Fatal("an unknown kind must fail")
	}
}
