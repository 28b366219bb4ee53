package confirm

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"solrails/internal/ledger"
	"solrails/internal/signer"
	"solrails/internal/txbuilder"
)

// rejectingSigner refuses every request, like a user dismissing the wallet
// prompt.
type rejectingSigner struct {
	key solana.PublicKey
}

func (r *rejectingSigner) PublicKey() solana.PublicKey { return r.key }

func (r *rejectingSigner) SignTransaction(context.Context, *solana.Transaction) error {
	return signer.ErrRejected
}

func (r *rejectingSigner) SignMessage(context.Context, []byte) (solana.Signature, error) {
	return solana.Signature{}, signer.ErrRejected
}

func buildTransfer(t *testing.T, fake *ledger.FakeClient, from, to solana.PublicKey, lamports uint64) *txbuilder.Request {
	t.Helper()
	lease, err := fake.LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	req, err := txbuilder.BuildTransfer(from, to, lamports, lease)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestTransferConfirmed(t *testing.T) {
	fake := ledger.NewFakeClient()
	sender := solana.NewWallet()
	recipient := solana.NewWallet().PublicKey()
	fake.SetBalance(sender.PublicKey(), 2_000_000_000)

	req := buildTransfer(t, fake, sender.PublicKey(), recipient, 1_000_000_000)
	res, err := NewWaiter(fake).Run(context.Background(), req, signer.NewKeypairSigner(sender.PrivateKey))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateConfirmed {
		t.Fatalf("expected confirmed, got %s (%v)", res.State, res.Reason)
	}

	got, _ := fake.Balance(context.Background(), recipient)
	if got != 1_000_000_000 {
		t.Fatalf("recipient balance %d after confirmation", got)
	}
}

func TestRejectionSkipsSubmission(t *testing.T) {
	fake := ledger.NewFakeClient()
	sender := solana.NewWallet()
	recipient := solana.NewWallet().PublicKey()

	req := buildTransfer(t, fake, sender.PublicKey(), recipient, 1_000_000_000)
	res, err := NewWaiter(fake).Run(context.Background(), req, &rejectingSigner{key: sender.PublicKey()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateRejected {
		t.Fatalf("expected rejected, got %s", res.State)
	}
	if !errors.Is(res.Reason, signer.ErrRejected) {
		t.Fatalf("expected ErrRejected reason, got %v", res.Reason)
	}
	if fake.SubmitCalls != 0 {
		t.Fatalf("rejected request must not be submitted, saw %d submits", fake.SubmitCalls)
	}
	if fake.ConfirmCalls != 0 {
		t.Fatalf("rejected request must not be polled, saw %d polls", fake.ConfirmCalls)
	}
}

func TestMissingSignerRejects(t *testing.T) {
	fake := ledger.NewFakeClient()
	sender := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	req := buildTransfer(t, fake, sender, recipient, 1)
	res, err := NewWaiter(fake).Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateRejected || !errors.Is(res.Reason, signer.ErrNoSigner) {
		t.Fatalf("expected rejection with ErrNoSigner, got %s (%v)", res.State, res.Reason)
	}
	if fake.SubmitCalls != 0 {
		t.Fatalf("expected no submission without a signer")
	}
}

func TestSubmitFailureIsTerminal(t *testing.T) {
	fake := ledger.NewFakeClient()
	fake.SubmitErr = errors.New("connection refused")
	sender := solana.NewWallet()
	recipient := solana.NewWallet().PublicKey()
	fake.SetBalance(sender.PublicKey(), 2_000_000_000)

	req := buildTransfer(t, fake, sender.PublicKey(), recipient, 1_000_000_000)
	res, err := NewWaiter(fake).Run(context.Background(), req, signer.NewKeypairSigner(sender.PrivateKey))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if fake.SubmitCalls != 1 {
		t.Fatalf("submit must not be retried, saw %d calls", fake.SubmitCalls)
	}
	if fake.ConfirmCalls != 0 {
		t.Fatalf("failed submission must not be polled")
	}
}

func TestExpiredLease(t *testing.T) {
	fake := ledger.NewFakeClient()
	sender := solana.NewWallet()
	recipient := solana.NewWallet().PublicKey()
	fake.SetBalance(sender.PublicKey(), 2_000_000_000)

	req := buildTransfer(t, fake, sender.PublicKey(), recipient, 1_000_000_000)
	fake.SetHeight(req.Lease.LastValidBlockHeight + 1)

	res, err := NewWaiter(fake).Run(context.Background(), req, signer.NewKeypairSigner(sender.PrivateKey))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateExpired {
		t.Fatalf("expected expired, got %s", res.State)
	}
	if res.LastValidHeight != req.Lease.LastValidBlockHeight {
		t.Fatalf("expired result should carry the lease height")
	}

	// The effect never landed.
	got, _ := fake.Balance(context.Background(), recipient)
	if got != 0 {
		t.Fatalf("expired transfer must not move funds, recipient has %d", got)
	}
}

func TestFundingConfirmed(t *testing.T) {
	fake := ledger.NewFakeClient()
	recipient := solana.NewWallet().PublicKey()

	req, err := txbuilder.BuildFunding(recipient, 1_500_000_000)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := NewWaiter(fake).Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != ledger.StateConfirmed {
		t.Fatalf("expected confirmed, got %s (%v)", res.State, res.Reason)
	}
	if fake.AirdropCalls != 1 || fake.BlockhashCalls != 1 {
		t.Fatalf("funding should airdrop once then fetch one lease, got %d/%d", fake.AirdropCalls, fake.BlockhashCalls)
	}

	got, _ := fake.Balance(context.Background(), recipient)
	if got != 1_500_000_000 {
		t.Fatalf("recipient balance %d after funding", got)
	}
}
