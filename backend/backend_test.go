package backend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/revertable"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	sync.Mutex
	calls      int
	sent       []*solana.Transaction
	sendErr    error
	blockErr   error
	statuses   []*SignatureStatus
	statusErr  error
	balances   map[solana.PublicKey]uint64
	balanceErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{balances: make(map[solana.PublicKey]uint64)}
}

func (c *fakeClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	c.Lock()
	defer c.Unlock()
	c.calls++
	return solana.Hash{1, 2, 3}, c.blockErr
}

func (c *fakeClient) SendTransaction(ctx context.Context, trx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	c.Lock()
	defer c.Unlock()
	c.calls++
	if c.sendErr != nil {
		return solana.Signature{}, c.sendErr
	}
	c.sent = append(c.sent, trx)
	return trx.Signatures[0], nil
}

// SignatureStatus replays statuses in order and repeats the last one.
func (c *fakeClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	c.Lock()
	defer c.Unlock()
	c.calls++
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	if len(c.statuses) == 0 {
		return nil, nil
	}
	status := c.statuses[0]
	if len(c.statuses) > 1 {
		c.statuses = c.statuses[1:]
	}
	return status, nil
}

func (c *fakeClient) Balance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	c.Lock()
	defer c.Unlock()
	c.calls++
	if c.balanceErr != nil {
		return 0, c.balanceErr
	}
	return c.balances[pubkey], nil
}

func newTestBackend(client Client) *Backend {
	return NewBackend(client, WithConfirmTimeout(100*time.Millisecond), WithPollInterval(time.Millisecond))
}

func newFund(t *testing.T) (*wallet.Wallet, *wallet.Wallet, *program.Transaction) {
	operator, err := wallet.Generate()
	require.NoError(t, err)
	ephemeral, err := wallet.Generate()
	require.NoError(t, err)
	return operator, ephemeral, revertable.BuildFund(operator, ephemeral.PublicKey(), 120000)
}

func TestSubmit_Confirmed(t *testing.T) {
	client := newFakeClient()
	client.statuses = []*SignatureStatus{
		nil,
		{Slot: 10, ConfirmationStatus: ConfirmationStatusProcessed},
		{Slot: 11, ConfirmationStatus: ConfirmationStatusConfirmed},
	}
	operator, _, trx := newFund(t)

	confirmation, err := newTestBackend(client).Submit(context.Background(), trx)
	require.NoError(t, err)
	assert.EqualValues(t, 11, confirmation.Slot)
	assert.Equal(t, ConfirmationStatusConfirmed, confirmation.Commitment)

	require.Len(t, client.sent, 1)
	sent := client.sent[0]
	assert.Equal(t, confirmation.Signature, sent.Signatures[0])
	assert.Equal(t, solana.Hash{1, 2, 3}, sent.Message.RecentBlockhash)
	assert.Equal(t, operator.PublicKey(), sent.Message.AccountKeys[0])
}

func TestSubmit_DelegatedFeePayerSignsFirst(t *testing.T) {
	client := newFakeClient()
	client.statuses = []*SignatureStatus{{Slot: 1, Rooted: true}}
	operator, ephemeral, _ := newFund(t)

	trx := revertable.BuildAssign(ephemeral, program.Evm).WithFeePayer(operator)
	confirmation, err := newTestBackend(client).Submit(context.Background(), trx)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationStatusFinalized, confirmation.Commitment)

	sent := client.sent[0]
	require.Len(t, sent.Signatures, 2)
	assert.Equal(t, operator.PublicKey(), sent.Message.AccountKeys[0])
	assert.Equal(t, ephemeral.PublicKey(), sent.Message.AccountKeys[1])
}

func TestSubmit_MissingSigner(t *testing.T) {
	client := newFakeClient()
	operator, ephemeral, _ := newFund(t)

	trx := revertable.BuildAssign(ephemeral, program.Evm)
	trx.FeePayer = operator.PublicKey()
	_, err := newTestBackend(client).Submit(context.Background(), trx)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Zero(t, client.calls)

	_, err = newTestBackend(client).Submit(context.Background(), &program.Transaction{})
	assert.True(t, IsMalformed(err))
	assert.Zero(t, client.calls)
}

func TestSubmit_RejectedAtPreflight(t *testing.T) {
	client := newFakeClient()
	client.sendErr = &RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed: custom program error: 0x21",
		Data: map[string]interface{}{"err": map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 33}}}}}
	_, _, trx := newFund(t)

	_, err := newTestBackend(client).Submit(context.Background(), trx)
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.False(t, IsTimeout(err))

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.False(t, subErr.PossiblyApplied())
	assert.False(t, subErr.Signature.IsZero())
}

func TestSubmit_RejectedOnChain(t *testing.T) {
	client := newFakeClient()
	client.statuses = []*SignatureStatus{{Slot: 5, Err: errors.New("InstructionError [0 Custom 33]")}}
	_, _, trx := newFund(t)

	_, err := newTestBackend(client).Submit(context.Background(), trx)
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Contains(t, err.Error(), "Custom 33")
}

func TestSubmit_Unreachable(t *testing.T) {
	client := newFakeClient()
	client.blockErr = &TransportError{Err: errors.New("connection refused")}
	_, _, trx := newFund(t)

	_, err := newTestBackend(client).Submit(context.Background(), trx)
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
	assert.Empty(t, client.sent)

	client.blockErr = nil
	client.sendErr = &TransportError{Err: errors.New("connection reset")}
	_, err = newTestBackend(client).Submit(context.Background(), trx)
	assert.True(t, IsUnreachable(err))

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.False(t, subErr.PossiblyApplied())
}

func TestSubmit_BlockhashErrorIsUnreachable(t *testing.T) {
	for _, blockErr := range []error{
		&RPCError{Code: RPCCodeNodeUnhealthy, Message: "Node is unhealthy"},
		&RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed"},
		&RPCError{Code: -32603, Message: "Internal error"},
	} {
		client := newFakeClient()
		client.blockErr = blockErr
		_, _, trx := newFund(t)

		_, err := newTestBackend(client).Submit(context.Background(), trx)
		require.Error(t, err)
		assert.True(t, IsUnreachable(err), blockErr.Error())
		assert.False(t, IsRejected(err), blockErr.Error())
		assert.Empty(t, client.sent)
	}
}

func TestSubmit_SendErrorClassification(t *testing.T) {
	for _, tc := range []struct {
		name     string
		sendErr  error
		rejected bool
	}{
		{
			name:     "simulation failed",
			sendErr:  &RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x21", Data: map[string]interface{}{"err": map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 33}}}}},
			rejected: true,
		},
		{
			name:    "simulation without transaction error",
			sendErr: &RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed"},
		},
		{
			name:    "node unhealthy",
			sendErr: &RPCError{Code: RPCCodeNodeUnhealthy, Message: "Node is unhealthy"},
		},
		{
			name:    "blockhash not found message",
			sendErr: &RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed: Blockhash not found"},
		},
		{
			name:    "blockhash not found data",
			sendErr: &RPCError{Code: RPCCodePreflightFailure, Message: "Transaction simulation failed", Data: map[string]interface{}{"err": "BlockhashNotFound"}},
		},
		{
			name:    "internal error",
			sendErr: &RPCError{Code: -32603, Message: "Internal error"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			client := newFakeClient()
			client.sendErr = tc.sendErr
			_, _, trx := newFund(t)

			_, err := newTestBackend(client).Submit(context.Background(), trx)
			require.Error(t, err)
			assert.Equal(t, tc.rejected, IsRejected(err))
			assert.Equal(t, !tc.rejected, IsUnreachable(err))
		})
	}
}

func TestSubmit_Timeout(t *testing.T) {
	client := newFakeClient()
	client.statuses = []*SignatureStatus{{Slot: 3, ConfirmationStatus: ConfirmationStatusProcessed}}
	_, _, trx := newFund(t)

	start := time.Now()
	_, err := newTestBackend(client).Submit(context.Background(), trx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.WithinDuration(t, start.Add(100*time.Millisecond), time.Now(), time.Second)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.True(t, subErr.PossiblyApplied())
	assert.False(t, subErr.Signature.IsZero())
	assert.Len(t, client.sent, 1)
}

func TestSubmit_StatusErrorsUntilTimeout(t *testing.T) {
	client := newFakeClient()
	client.statusErr = &TransportError{Err: errors.New("502 bad gateway")}
	_, _, trx := newFund(t)

	_, err := newTestBackend(client).Submit(context.Background(), trx)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "502 bad gateway")
}

func TestGetBalance(t *testing.T) {
	client := newFakeClient()
	funded, err := wallet.Generate()
	require.NoError(t, err)
	unknown, err := wallet.Generate()
	require.NoError(t, err)
	client.balances[funded.PublicKey()] = 120000
	b := newTestBackend(client)

	first, err := b.GetBalance(context.Background(), funded.PublicKey())
	require.NoError(t, err)
	second, err := b.GetBalance(context.Background(), funded.PublicKey())
	require.NoError(t, err)
	assert.EqualValues(t, 120000, first)
	assert.Equal(t, first, second)

	zero, err := b.GetBalance(context.Background(), unknown.PublicKey())
	require.NoError(t, err)
	assert.Zero(t, zero)

	client.balanceErr = &TransportError{Err: errors.New("connection refused")}
	_, err = b.GetBalance(context.Background(), funded.PublicKey())
	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, funded.PublicKey(), queryErr.Address)
}
