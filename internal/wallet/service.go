// Package wallet is the user-facing surface of the pipeline: funding,
// transfer, message signing and balance, with every failure reduced to the
// shared taxonomy before it leaves.
package wallet

import (
	"context"
	"errors"
	"log"

	"github.com/gagliardetto/solana-go"

	"solrails/internal/balance"
	"solrails/internal/confirm"
	"solrails/internal/ledger"
	"solrails/internal/signer"
	"solrails/internal/sol"
	"solrails/internal/txbuilder"
	"solrails/internal/walleterr"
)

// ErrSelfTransfer marks a transfer whose recipient is the sender itself. The
// network would accept one, but it is always user error here.
var ErrSelfTransfer = errors.New("recipient matches the sender address")

// Result is the success payload of a funding or transfer action.
type Result struct {
	Signature solana.Signature
	Lamports  uint64
}

// Service wires the pipeline in its mandated order: validate, lease, build,
// sign, submit, confirm, then invalidate the balance. Collaborators are
// injected; the service holds no ambient state.
type Service struct {
	ledger ledger.Client
	signer signer.Signer
	waiter *confirm.Waiter
	poller *balance.Poller
}

func NewService(l ledger.Client, s signer.Signer, p *balance.Poller) *Service {
	return &Service{
		ledger: l,
		signer: s,
		waiter: confirm.NewWaiter(l),
		poller: p,
	}
}

// Address returns the connected wallet address, if a signer is present.
func (s *Service) Address() (solana.PublicKey, bool) {
	if s.signer == nil {
		return solana.PublicKey{}, false
	}
	return s.signer.PublicKey(), true
}

// RequestFunding airdrops the given SOL amount to the wallet address and
// waits for finality.
func (s *Service) RequestFunding(ctx context.Context, amountSol float64) (Result, error) {
	if s.signer == nil {
		return Result{}, walleterr.New(walleterr.CodeUserRejected, signer.ErrNoSigner)
	}
	lamports, err := sol.ToLamports(amountSol)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}

	req, err := txbuilder.BuildFunding(s.signer.PublicKey(), lamports)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	return s.finish(ctx, req, lamports)
}

// Transfer sends the given SOL amount to the recipient address. Validation
// happens before any network call: a bad address or amount never reaches the
// node.
func (s *Service) Transfer(ctx context.Context, recipient string, amountSol float64) (Result, error) {
	if s.signer == nil {
		return Result{}, walleterr.New(walleterr.CodeUserRejected, signer.ErrNoSigner)
	}
	to, err := sol.ParseAddress(recipient)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	lamports, err := sol.ToLamports(amountSol)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	from := s.signer.PublicKey()
	if to.Equals(from) {
		return Result{}, walleterr.New(walleterr.CodeInvalidAddress, ErrSelfTransfer)
	}

	lease, err := s.ledger.LatestBlockhash(ctx)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	req, err := txbuilder.BuildTransfer(from, to, lamports, lease)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	return s.finish(ctx, req, lamports)
}

// SignMessage signs arbitrary text and returns the base58 signature.
func (s *Service) SignMessage(ctx context.Context, message string) (string, error) {
	if s.signer == nil {
		return "", walleterr.New(walleterr.CodeUserRejected, signer.ErrNoSigner)
	}
	sig, err := s.signer.SignMessage(ctx, []byte(message))
	if err != nil {
		return "", walleterr.Classify(err)
	}
	return sig.String(), nil
}

// Balance returns the current snapshot, fetching one first if the poller has
// never observed a value.
func (s *Service) Balance(ctx context.Context) (balance.Snapshot, error) {
	if s.poller == nil {
		return balance.Snapshot{}, walleterr.New(walleterr.CodeUserRejected, signer.ErrNoSigner)
	}
	snap := s.poller.Snapshot()
	if snap.ObservedAt.IsZero() {
		if _, err := s.poller.Refresh(ctx); err != nil {
			return s.poller.Snapshot(), walleterr.Classify(err)
		}
		snap = s.poller.Snapshot()
	}
	return snap, nil
}

// finish drives the built request to a terminal state and refreshes the
// balance after a confirmation touching the tracked address.
func (s *Service) finish(ctx context.Context, req *txbuilder.Request, lamports uint64) (Result, error) {
	res, err := s.waiter.Run(ctx, req, s.signer)
	if err != nil {
		return Result{}, walleterr.Classify(err)
	}
	if res.State != ledger.StateConfirmed {
		return Result{}, walleterr.FromResult(res)
	}

	if s.poller != nil {
		if _, err := s.poller.Refresh(ctx); err != nil {
			log.Printf("balance refresh after confirmation: %v", err)
		}
	}
	return Result{Signature: res.Signature, Lamports: lamports}, nil
}
