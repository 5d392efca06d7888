package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"
)

const (
	ConfirmationStatusProcessed = "processed"
	ConfirmationStatusConfirmed = "confirmed"
	ConfirmationStatusFinalized = "finalized"
)

// SignatureStatus is the ledger's view of a sent transaction.
type SignatureStatus struct {
	Slot               uint64
	Err                error
	Rooted             bool
	ConfirmationStatus string
}

func (s *SignatureStatus) Confirmed() bool {
	return s.Rooted ||
		s.ConfirmationStatus == ConfirmationStatusConfirmed ||
		s.ConfirmationStatus == ConfirmationStatusFinalized
}

// Client is the part of the ledger RPC the backend depends on.
type Client interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, trx *solana.Transaction, skipPreflight bool) (solana.Signature, error)
	// SignatureStatus returns nil, nil while the ledger has not seen sig.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	Balance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// RPCError is an error response of the ledger, as opposed to a failure to
// reach it.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC error codes of the ledger node.
const (
	RPCCodePreflightFailure = -32002
	RPCCodeNodeUnhealthy    = -32005
)

// PreflightFailure reports whether the node simulated the transaction and
// the simulation failed with a transaction error. A blockhash the node does
// not know yet is not a transaction error.
func (e *RPCError) PreflightFailure() bool {
	if e.Code != RPCCodePreflightFailure {
		return false
	}
	if strings.Contains(strings.ToLower(e.Message), "blockhash not found") {
		return false
	}
	data, ok := e.Data.(map[string]interface{})
	if !ok || data["err"] == nil {
		return false
	}
	if txErr, ok := data["err"].(string); ok && txErr == "BlockhashNotFound" {
		return false
	}
	return true
}

// TransportError means the request never got an answer from the ledger.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s", e.Err)
}

func (e *TransportError) Cause() error {
	return e.Err
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type rpcClient struct {
	client *rpc.Client
}

// NewRPCClient adapts a solana-go rpc client for endpoint.
func NewRPCClient(endpoint string) Client {
	return &rpcClient{
		client: rpc.New(endpoint),
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
	}
	return &TransportError{Err: err}
}

func (c *rpcClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, classify(err)
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, &TransportError{Err: errors.New("empty blockhash response")}
	}
	return result.Value.Blockhash, nil
}

func (c *rpcClient) SendTransaction(ctx context.Context, trx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	signature, err := c.client.SendTransactionWithOpts(ctx, trx, skipPreflight, rpc.CommitmentConfirmed)
	return signature, classify(err)
}

func (c *rpcClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	result, err := c.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, classify(err)
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	value := result.Value[0]
	status := &SignatureStatus{
		Slot:               value.Slot,
		Rooted:             value.Confirmations == nil,
		ConfirmationStatus: string(value.ConfirmationStatus),
	}
	if value.Err != nil {
		status.Err = errors.Errorf("%v", value.Err)
	}
	return status, nil
}

func (c *rpcClient) Balance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, classify(err)
	}
	return result.Value, nil
}
