package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
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
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseOptionalCents(t *testing.T) {
	if got, err := ParseOptionalCents(""); err != nil || got != 0 {
		t.Fatalf("empty should be zero, got %d (err=%v)", got, err)
	}
	if got, err := ParseOptionalCents("150.00"); err != nil || got != 15000 {
		t.Fatalf("expected 15000, got %d (err=%v)", got, err)
	}
	if _, err := ParseOptionalCents("-3"); err == nil {
		t.Fatal("negative savings should be rejected")
	}
}

func TestMoneyScale(t *testing.T) {
	cases := []struct {
		cents int64
		rate  float64
		want  int64
	}{
		{100000, 1.25, 125000}, // 1000.00 GBP at 1.25 -> 1250.00
		{100, 1.0, 100},
		{333, 0.5, 167}, // rounds half up
		{999, 1.1, 1099},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Scale(tc.rate); got.Cents != tc.want {
			t.Errorf("Scale(%d, %v) = %d, want %d", tc.cents, tc.rate, got.Cents, tc.want)
		}
	}
}

func TestMoneyDivideBy(t *testing.T) {
	if got := (Money{Cents: 1000}).DivideBy(3); got.Cents != 333 {
		t.Errorf("expected 333, got %d", got.Cents)
	}
	// duration guard: never divide by less than one day
	if got := (Money{Cents: 500}).DivideBy(0); got.Cents != 500 {
		t.Errorf("expected 500, got %d", got.Cents)
	}
}
