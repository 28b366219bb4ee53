package sol

import (
	"errors"
	"testing"
)

func TestParseAddressAccepted(t *testing.T) {
	for _, raw := range []string{
		"11111111111111111111111111111111",
		"Vote111111111111111111111111111111111111111",
		"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
	} {
		key, err := ParseAddress(raw)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", raw, err)
		}
		if key.IsZero() && raw != "11111111111111111111111111111111" {
			t.Fatalf("ParseAddress(%q) returned the zero key", raw)
		}
	}
}

func TestParseAddressRejected(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not-an-address",
		"abc",
		"111",
		"0x6b175474e89094c44da98b954eedeac495271d0f",
		"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T4Nd1",
	} {
		if _, err := ParseAddress(raw); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ParseAddress(%q): expected ErrInvalidAddress, got %v", raw, err)
		}
	}
}
