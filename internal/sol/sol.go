// Package sol holds the pure input boundary of the pipeline: unit conversion
// between SOL and lamports, and recipient address validation. Nothing in here
// touches the network.
package sol

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAddress = errors.New("invalid address")
)

// ToLamports converts a SOL amount into lamports, rounding to the nearest
// lamport. It fails with ErrInvalidAmount for non-finite or non-positive
// input, and for amounts that round down to zero lamports.
func ToLamports(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: amount must be finite", ErrInvalidAmount)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	lamports := math.Round(amount * float64(solana.LAMPORTS_PER_SOL))
	if lamports >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: amount overflows lamports", ErrInvalidAmount)
	}
	if lamports == 0 {
		return 0, fmt.Errorf("%w: amount is below one lamport", ErrInvalidAmount)
	}
	return uint64(lamports), nil
}

// ToSOL is the display-side inverse of ToLamports. It never fails.
func ToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
