// Package signer defines the wallet-supplied capability that authorizes
// transactions and messages. The capability may refuse, and its absence is an
// expected condition, not a fatal one.
package signer

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrRejected is returned when the signer refuses to sign.
	ErrRejected = errors.New("signer rejected the request")
	// ErrNoSigner is returned when no signer capability is connected.
	ErrNoSigner = errors.New("no signer connected")
)

// Signer authorizes transactions and arbitrary messages.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
	SignMessage(ctx context.Context, msg []byte) (solana.Signature, error)
}
