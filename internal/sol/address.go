package sol

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParseAddress validates a raw recipient string as a Solana public key. A raw
// string never crosses this boundary unchecked: anything that is not base58
// for exactly 32 bytes (hex Ethereum addresses included) is rejected.
func ParseAddress(raw string) (solana.PublicKey, error) {
	if strings.TrimSpace(raw) == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return key, nil
}
