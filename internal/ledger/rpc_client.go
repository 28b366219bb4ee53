package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient talks to a single configured Solana JSON-RPC endpoint. Commitment
// level and poll cadence are fixed at construction.
type RPCClient struct {
	rpc          *rpc.Client
	commitment   rpc.CommitmentType
	pollInterval time.Duration
}

type RPCClientConfig struct {
	Endpoint     string
	Commitment   rpc.CommitmentType
	PollInterval time.Duration
}

func NewRPCClient(cfg RPCClientConfig) (*RPCClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &RPCClient{
		rpc:          rpc.New(cfg.Endpoint),
		commitment:   commitment,
		pollInterval: poll,
	}, nil
}

func (c *RPCClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, addr, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}

func (c *RPCClient) LatestBlockhash(ctx context.Context) (BlockhashLease, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return BlockhashLease{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return BlockhashLease{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

func (c *RPCClient) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

func (c *RPCClient) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, addr, lamports, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("request airdrop: %w", err)
	}
	return sig, nil
}

// WaitForConfirmation polls signature status until the configured commitment
// is reached, the node reports the transaction failed, or the ledger height
// passes the lease's last valid block height. The lease bounds the wait, so
// the loop never runs past the validity window.
func (c *RPCClient) WaitForConfirmation(ctx context.Context, sig solana.Signature, lease BlockhashLease) (ConfirmationResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return ConfirmationResult{}, fmt.Errorf("get signature statuses: %w", err)
		}
		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return ConfirmationResult{
					State:     StateFailed,
					Signature: sig,
					Reason:    fmt.Errorf("transaction failed on chain: %v", status.Err),
				}, nil
			}
			if statusRank(status.ConfirmationStatus) >= commitmentRank(c.commitment) {
				return ConfirmationResult{State: StateConfirmed, Signature: sig}, nil
			}
		}

		height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
		if err != nil {
			return ConfirmationResult{}, fmt.Errorf("get block height: %w", err)
		}
		if height > lease.LastValidBlockHeight {
			return ConfirmationResult{
				State:           StateExpired,
				Signature:       sig,
				LastValidHeight: lease.LastValidBlockHeight,
			}, nil
		}

		select {
		case <-ctx.Done():
			return ConfirmationResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) Ping(ctx context.Context) error {
	_, err := c.rpc.GetHealth(ctx)
	return err
}

func statusRank(s rpc.ConfirmationStatusType) int {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	}
	return 0
}

func commitmentRank(c rpc.CommitmentType) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 1
	case rpc.CommitmentConfirmed:
		return 2
	}
	return 3
}
