package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"12.5", 1250, true},
		{"1,23", 123, true},
		{"0", 0, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	m, err := MoneyFromFloat(0.1 + 0.2)
	if err != nil || m.Cents != 30 {
		t.Fatalf("expected 30 cents, got %d (err=%v)", m.Cents, err)
	}
	if _, err := MoneyFromFloat(-0.5); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 2000: "20.00", 2250: "22.50", 123456: "1234.56"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d cents: expected %q, got %q", cents, want, got)
		}
	}
	if f := (Money{Cents: 1250}).Float(); f != 12.5 {
		t.Fatalf("expected 12.5, got %v", f)
	}
}
