// Package txbuilder assembles unsigned submission requests from already
// validated, already fetched inputs. It performs no I/O.
package txbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"solrails/internal/ledger"
	"solrails/internal/sol"
)

type Kind int

const (
	KindTransfer Kind = iota
	KindFunding
)

// Request is an unsigned, fully parameterized submission. It is owned by the
// builder until handed to the signer.
type Request struct {
	Kind     Kind
	From     solana.PublicKey // zero for funding
	To       solana.PublicKey
	Lamports uint64
	FeePayer solana.PublicKey
	Lease    ledger.BlockhashLease
	Tx       *solana.Transaction // nil for funding, which is a plain RPC call
}

// BuildTransfer assembles a system-program transfer. The sender pays the fee
// and the transaction is bound to the given lease; a retry after expiry must
// rebuild with a fresh lease. Self-transfer policy is the caller's.
func BuildTransfer(from, to solana.PublicKey, lamports uint64, lease ledger.BlockhashLease) (*Request, error) {
	if lamports == 0 {
		return nil, fmt.Errorf("%w: transfer needs a positive lamport amount", sol.ErrInvalidAmount)
	}
	ix := system.NewTransferInstruction(lamports, from, to).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		lease.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	return &Request{
		Kind:     KindTransfer,
		From:     from,
		To:       to,
		Lamports: lamports,
		FeePayer: from,
		Lease:    lease,
		Tx:       tx,
	}, nil
}

// BuildFunding assembles an airdrop request. No transaction and no lease: the
// node signs and submits on our behalf, and the lease for the confirmation
// wait is fetched after submission.
func BuildFunding(to solana.PublicKey, lamports uint64) (*Request, error) {
	if lamports == 0 {
		return nil, fmt.Errorf("%w: funding needs a positive lamport amount", sol.ErrInvalidAmount)
	}
	return &Request{
		Kind:     KindFunding,
		To:       to,
		Lamports: lamports,
	}, nil
}
