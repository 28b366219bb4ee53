// Package ledger abstracts the Solana node RPC surface the wallet pipeline
// needs: balance queries, blockhash leases, submission and confirmation.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// BlockhashLease binds a transaction to a recent ledger state for a bounded
// validity window. A lease is single-use: once a transaction referencing it
// has been submitted, any retry must fetch a fresh one.
type BlockhashLease struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// State is the terminal outcome of a submission.
type State int

const (
	StateConfirmed State = iota
	StateExpired
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateExpired:
		return "expired"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ConfirmationResult is terminal and never mutated after creation. Expired
// means the lease's validity window closed before the network reported the
// transaction: funds may or may not have moved, which is why it is kept
// distinct from Failed.
type ConfirmationResult struct {
	State           State
	Signature       solana.Signature
	LastValidHeight uint64 // set when State == StateExpired
	Reason          error  // set for StateRejected and StateFailed
}

// Client is the node RPC surface. Submit is fire-and-forget and implies no
// confirmation; none of the operations retry on their own.
type Client interface {
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (BlockhashLease, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature, lease BlockhashLease) (ConfirmationResult, error)
}

// HealthChecker is implemented by clients that can probe node reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
