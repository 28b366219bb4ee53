// Package confirm drives a built request through signing, submission and
// confirmation: Built -> Signed -> Submitted -> {Confirmed | Expired |
// Rejected | Failed}. Terminal states have no outgoing transition and the
// waiter never retries on its own; a retry needs a rebuilt request with a
// fresh blockhash lease.
package confirm

import (
	"context"
	"fmt"

	"solrails/internal/ledger"
	"solrails/internal/signer"
	"solrails/internal/txbuilder"
)

type Waiter struct {
	ledger ledger.Client
}

func NewWaiter(l ledger.Client) *Waiter {
	return &Waiter{ledger: l}
}

// Run takes a request to a terminal state. A returned error means the
// pipeline itself could not reach a verdict (transport failure while
// polling); the caller cannot assume anything about the transaction then.
func (w *Waiter) Run(ctx context.Context, req *txbuilder.Request, s signer.Signer) (ledger.ConfirmationResult, error) {
	switch req.Kind {
	case txbuilder.KindTransfer:
		return w.runTransfer(ctx, req, s)
	case txbuilder.KindFunding:
		return w.runFunding(ctx, req)
	}
	return ledger.ConfirmationResult{}, fmt.Errorf("unknown request kind %d", req.Kind)
}

// runTransfer signs then submits. A rejection short-circuits before any
// network call is made.
func (w *Waiter) runTransfer(ctx context.Context, req *txbuilder.Request, s signer.Signer) (ledger.ConfirmationResult, error) {
	if s == nil {
		return ledger.ConfirmationResult{State: ledger.StateRejected, Reason: signer.ErrNoSigner}, nil
	}
	if err := s.SignTransaction(ctx, req.Tx); err != nil {
		return ledger.ConfirmationResult{State: ledger.StateRejected, Reason: err}, nil
	}

	sig, err := w.ledger.Submit(ctx, req.Tx)
	if err != nil {
		return ledger.ConfirmationResult{State: ledger.StateFailed, Reason: err}, nil
	}

	return w.ledger.WaitForConfirmation(ctx, sig, req.Lease)
}

// runFunding submits the airdrop first and fetches the lease afterwards; the
// node picks the blockhash for an airdrop, so the wait window can only be
// anchored once the signature exists.
func (w *Waiter) runFunding(ctx context.Context, req *txbuilder.Request) (ledger.ConfirmationResult, error) {
	sig, err := w.ledger.RequestAirdrop(ctx, req.To, req.Lamports)
	if err != nil {
		return ledger.ConfirmationResult{State: ledger.StateFailed, Reason: err}, nil
	}

	lease, err := w.ledger.LatestBlockhash(ctx)
	if err != nil {
		return ledger.ConfirmationResult{}, fmt.Errorf("lease for confirmation wait: %w", err)
	}

	return w.ledger.WaitForConfirmation(ctx, sig, lease)
}
