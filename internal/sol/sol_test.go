package sol

import (
	"errors"
	"math"
	"testing"
)

func TestToLamports(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		want   uint64
		ok     bool
	}{
		{"one and a half sol", 1.5, 1_500_000_000, true},
		{"whole sol", 2, 2_000_000_000, true},
		{"single lamport", 0.000000001, 1, true},
		{"rounds to nearest", 0.0000000015, 2, true},
		{"zero", 0, 0, false},
		{"negative", -1, 0, false},
		{"below one lamport", 0.0000000004, 0, false},
		{"nan", math.NaN(), 0, false},
		{"positive inf", math.Inf(1), 0, false},
		{"negative inf", math.Inf(-1), 0, false},
	}

	for _, tc := range cases {
		got, err := ToLamports(tc.amount)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.name, err)
			}
			if got != tc.want {
				t.Fatalf("%s: got %d lamports, want %d", tc.name, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", tc.name, err)
		}
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, amount := range []float64{1.5, 0.25, 2, 0.000000001, 123.456} {
		lamports, err := ToLamports(amount)
		if err != nil {
			t.Fatalf("ToLamports(%v): %v", amount, err)
		}
		if back := ToSOL(lamports); back != amount {
			t.Fatalf("round trip of %v came back as %v", amount, back)
		}
	}
}
