package fifotax

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeEvents decodes normalized events from a stream of JSONL data: one
// JSON object per line, identified by its "kind" field. Order in the stream
// is irrelevant, the engine establishes the total order itself.
func DecodeEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Kind EventKind `json:"kind"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify kind in line %q: %w", string(lineBytes), err)
		}

		var decoded Event
		var err error

		switch identifier.Kind {
		case KindDeposit:
			var e Deposit
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindWithdrawal:
			var e Withdrawal
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindBuy:
			var e Buy
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindSell:
			var e Sell
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindDividend:
			var e Dividend
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindCurrencyExchange:
			var e CurrencyExchange
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindStockSplit:
			var e StockSplit
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindRSUDeposit:
			var e RSUDeposit
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		case KindESPPPurchase:
			var e ESPPPurchase
			err = json.Unmarshal(lineBytes, &e)
			decoded = e
		default:
			err = fmt.Errorf("unknown event kind: %q", identifier.Kind)
		}

		if err != nil {
			return nil, err
		}
		events = append(events, decoded)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return events, nil
}

// EncodeEvent marshals a single event to JSON and writes it to the writer,
// followed by a newline, in JSONL format. Field order is stable, so encoded
// streams diff cleanly under version control.
func EncodeEvent(w io.Writer, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// EncodeEvents persists events to an io.Writer in JSONL format, in total
// order (date, then same-day priority under DefaultOrdering).
func EncodeEvents(w io.Writer, events []Event) error {
	for _, e := range sortEvents(events, nil) {
		if err := EncodeEvent(w, e); err != nil {
			return err
		}
	}
	return nil
}
