// Package walleterr reduces every failure the pipeline can surface to a
// closed taxonomy. No raw provider error leaks past this boundary.
package walleterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"solrails/internal/ledger"
	"solrails/internal/signer"
	"solrails/internal/sol"
)

// Code is the closed error taxonomy.
type Code string

const (
	CodeInvalidAddress Code = "invalid_address"
	CodeInvalidAmount  Code = "invalid_amount"
	CodeRateLimited    Code = "rate_limited"
	CodeUserRejected   Code = "user_rejected"
	CodeTransient      Code = "transient"
	CodeExpired        Code = "expired"
	CodeFailed         Code = "failed"
	CodeUnknown        Code = "unknown"
)

// Retryable reports whether re-submitting the same intent can help. Expired
// is deliberately excluded: funds movement is unknown, so the caller must
// re-check the balance before retrying with a fresh lease.
func (c Code) Retryable() bool {
	return c == CodeRateLimited || c == CodeTransient
}

// Error pairs a taxonomy code with its underlying cause.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Classify maps a raw failure onto the taxonomy. Structured signals (sentinel
// errors, JSON-RPC error codes) are checked first; message inspection is the
// last resort for nodes that only report a rate limit in text.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, sol.ErrInvalidAddress):
		return New(CodeInvalidAddress, err)
	case errors.Is(err, sol.ErrInvalidAmount):
		return New(CodeInvalidAmount, err)
	case errors.Is(err, signer.ErrRejected), errors.Is(err, signer.ErrNoSigner):
		return New(CodeUserRejected, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return New(CodeTransient, err)
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == 429 {
			return New(CodeRateLimited, err)
		}
		return New(CodeFailed, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return New(CodeTransient, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return New(CodeTransient, err)
	}

	if mentionsRateLimit(err.Error()) {
		return New(CodeRateLimited, err)
	}
	return New(CodeUnknown, err)
}

// FromResult maps a terminal confirmation result onto the taxonomy.
func FromResult(res ledger.ConfirmationResult) *Error {
	switch res.State {
	case ledger.StateConfirmed:
		return nil
	case ledger.StateExpired:
		return New(CodeExpired, fmt.Errorf("confirmation window closed at height %d", res.LastValidHeight))
	case ledger.StateRejected:
		return New(CodeUserRejected, res.Reason)
	}

	// Failed: the reason decides whether it was the transport, the rate
	// limiter, or the node definitively rejecting the transaction.
	if res.Reason == nil {
		return New(CodeFailed, errors.New("node rejected the transaction"))
	}
	inner := Classify(res.Reason)
	switch inner.Code {
	case CodeRateLimited, CodeTransient:
		return inner
	}
	return New(CodeFailed, res.Reason)
}

func mentionsRateLimit(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}
