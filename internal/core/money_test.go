package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"1.234,56", 123456, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	cases := map[int64]string{
		0:         "R$ 0,00",
		5:         "R$ 0,05",
		12000:     "R$ 120,00",
		123456:    "R$ 1.234,56",
		100000000: "R$ 1.000.000,00",
		-3000:     "-R$ 30,00",
	}
	for cents, want := range cases {
		if got := FormatBRL(Cents(cents)); got != want {
			t.Errorf("FormatBRL(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		V Money `json:"valor"`
	}{Cents(-3050)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"valor":-30.50}` {
		t.Fatalf("unexpected json %s", b)
	}

	for _, in := range []string{`40`, `40.0`, `"40.00"`, `39.999`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 4000 {
			t.Fatalf("unmarshal %s = %d cents", in, m.Cents)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := Cents(10000), Cents(-3000)
	if got := a.Add(b); got.Cents != 7000 {
		t.Fatalf("add = %d", got.Cents)
	}
	if got := b.Abs(); got.Cents != 3000 {
		t.Fatalf("abs = %d", got.Cents)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Fatalf("cmp mismatch")
	}
	if a.String() != "100.00" {
		t.Fatalf("string = %q", a.String())
	}
}
