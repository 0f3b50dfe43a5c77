package fifotax

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-03-01", want: NewDate(2024, time.March, 1)},
		{in: "2024-3-1", want: NewDate(2024, time.March, 1)}, // permissive single digits
		{in: "2024-02-29", want: NewDate(2024, time.February, 29)},
		{in: "not-a-date", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseDate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := day("2024-02-28")
	if got := d.Add(2); !got.Equal(day("2024-03-01")) {
		t.Errorf("Add(2) = %s, want 2024-03-01 across the leap day", got)
	}
	if got := day("2024-03-01").Sub(day("2024-02-28")); got != 2 {
		t.Errorf("Sub = %d, want 2", got)
	}
	if !day("2024-02-28").Before(day("2024-03-01")) {
		t.Error("Before is wrong")
	}
	if !day("2024-03-01").After(day("2024-02-28")) {
		t.Error("After is wrong")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	in := day("2024-03-01")
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2024-03-01"` {
		t.Errorf("marshaled = %s", data)
	}
	var out Date
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}

func TestDate_Zero(t *testing.T) {
	var zero Date
	if !zero.IsZero() {
		t.Error("zero value must report IsZero")
	}
	if day("2024-03-01").IsZero() {
		t.Error("a real date must not report IsZero")
	}
}
