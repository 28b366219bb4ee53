package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TransferFee is the flat fee the fake charges the fee payer of a transfer.
// Airdrops are free, as on the real network.
const TransferFee uint64 = 5000

// FakeClient emulates enough of a node in memory to run the pipeline without
// a network. Submitted effects land on the balances only when the signature
// confirms. Call counters and error knobs are exported for tests.
type FakeClient struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
	pending  map[solana.Signature]effect
	height   uint64
	window   uint64
	nextSig  uint64

	BalanceCalls   int
	BlockhashCalls int
	SubmitCalls    int
	AirdropCalls   int
	ConfirmCalls   int

	BalanceErr error
	SubmitErr  error
	AirdropErr error
	ConfirmErr error
	PingErr    error

	// BalanceGate, when set, blocks Balance until the channel is closed.
	BalanceGate chan struct{}
}

type effect struct {
	from     solana.PublicKey
	to       solana.PublicKey
	lamports uint64
	fee      uint64
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		balances: make(map[solana.PublicKey]uint64),
		pending:  make(map[solana.Signature]effect),
		height:   100,
		window:   150,
	}
}

// SetBalance seeds an account.
func (f *FakeClient) SetBalance(addr solana.PublicKey, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = lamports
}

// SetHeight moves the simulated ledger height, expiring any lease whose last
// valid height is now behind it.
func (f *FakeClient) SetHeight(height uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height = height
}

func (f *FakeClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	f.BalanceCalls++
	gate := f.BalanceGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return 0, f.BalanceErr
	}
	return f.balances[addr], nil
}

func (f *FakeClient) LatestBlockhash(_ context.Context) (BlockhashLease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BlockhashCalls++
	var hash solana.Hash
	binary.LittleEndian.PutUint64(hash[:8], f.height)
	return BlockhashLease{Blockhash: hash, LastValidBlockHeight: f.height + f.window}, nil
}

func (f *FakeClient) Submit(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubmitCalls++
	if f.SubmitErr != nil {
		return solana.Signature{}, f.SubmitErr
	}

	eff, err := decodeTransfer(tx)
	if err != nil {
		return solana.Signature{}, err
	}
	sig := f.newSignature()
	f.pending[sig] = eff
	return sig, nil
}

func (f *FakeClient) RequestAirdrop(_ context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AirdropCalls++
	if f.AirdropErr != nil {
		return solana.Signature{}, f.AirdropErr
	}
	sig := f.newSignature()
	f.pending[sig] = effect{to: addr, lamports: lamports}
	return sig, nil
}

func (f *FakeClient) WaitForConfirmation(_ context.Context, sig solana.Signature, lease BlockhashLease) (ConfirmationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConfirmCalls++
	if f.ConfirmErr != nil {
		return ConfirmationResult{}, f.ConfirmErr
	}
	if f.height > lease.LastValidBlockHeight {
		return ConfirmationResult{
			State:           StateExpired,
			Signature:       sig,
			LastValidHeight: lease.LastValidBlockHeight,
		}, nil
	}

	eff, ok := f.pending[sig]
	if !ok {
		return ConfirmationResult{
			State:     StateFailed,
			Signature: sig,
			Reason:    fmt.Errorf("unknown signature %s", sig),
		}, nil
	}
	delete(f.pending, sig)

	if !eff.from.IsZero() {
		needed := eff.lamports + eff.fee
		if f.balances[eff.from] < needed {
			return ConfirmationResult{
				State:     StateFailed,
				Signature: sig,
				Reason:    fmt.Errorf("insufficient funds: have %d, need %d", f.balances[eff.from], needed),
			}, nil
		}
		f.balances[eff.from] -= needed
	}
	f.balances[eff.to] += eff.lamports
	f.height++
	return ConfirmationResult{State: StateConfirmed, Signature: sig}, nil
}

func (f *FakeClient) Ping(_ context.Context) error {
	return f.PingErr
}

func (f *FakeClient) newSignature() solana.Signature {
	f.nextSig++
	var sig solana.Signature
	binary.LittleEndian.PutUint64(sig[:8], f.nextSig)
	return sig
}

// decodeTransfer extracts the system-program transfer from a submitted
// transaction so the fake can apply it on confirmation.
func decodeTransfer(tx *solana.Transaction) (effect, error) {
	msg := tx.Message
	if len(msg.Instructions) != 1 {
		return effect{}, fmt.Errorf("expected a single instruction, got %d", len(msg.Instructions))
	}
	ix := msg.Instructions[0]
	data := []byte(ix.Data)
	if len(data) != 12 || binary.LittleEndian.Uint32(data[:4]) != 2 {
		return effect{}, fmt.Errorf("not a system transfer instruction")
	}
	if len(ix.Accounts) < 2 {
		return effect{}, fmt.Errorf("transfer instruction needs two accounts")
	}
	from := msg.AccountKeys[ix.Accounts[0]]
	to := msg.AccountKeys[ix.Accounts[1]]
	return effect{
		from:     from,
		to:       to,
		lamports: binary.LittleEndian.Uint64(data[4:]),
		fee:      TransferFee,
	}, nil
}
