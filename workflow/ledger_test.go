package workflow

import (
	"context"
	"sync"

	"github.com/egaotan/solana-revertable/backend"
	"github.com/egaotan/solana-revertable/evm"
	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/system"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

const testFee = uint64(5000)

// fakeLedger applies system transfers, assigns and bridge swaps to an in
// memory balance table and charges a flat fee to the fee payer.
type fakeLedger struct {
	mu            sync.Mutex
	balances      map[solana.PublicKey]uint64
	owners        map[solana.PublicKey]solana.PublicKey
	rejectProgram solana.PublicKey
	failStep      map[int]error
	balanceErr    error
	submits       int
	queries       int
	submitted     []*program.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[solana.PublicKey]uint64),
		owners:   make(map[solana.PublicKey]solana.PublicKey),
		failStep: make(map[int]error),
	}
}

func (l *fakeLedger) Submit(ctx context.Context, t *program.Transaction) (*backend.Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	index := l.submits
	l.submits++
	l.submitted = append(l.submitted, t)
	var sig solana.Signature
	sig[0] = byte(index + 1)
	if err, ok := l.failStep[index]; ok {
		return nil, err
	}
	if missing := t.MissingSigners(); len(missing) > 0 {
		return nil, &backend.SubmissionError{Reason: backend.ReasonMalformed, Err: errors.New("missing signer")}
	}
	if l.balances[t.FeePayer] < testFee {
		return nil, &backend.SubmissionError{Reason: backend.ReasonRejected, Signature: sig, Err: errors.New("insufficient funds for fee")}
	}
	balances := make(map[solana.PublicKey]uint64, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}
	balances[t.FeePayer] -= testFee
	for _, instruction := range t.Instructions {
		if err := l.apply(balances, instruction); err != nil {
			// failed transactions still pay the fee
			l.balances[t.FeePayer] -= testFee
			return nil, &backend.SubmissionError{Reason: backend.ReasonRejected, Signature: sig, Err: err}
		}
	}
	l.balances = balances
	return &backend.Confirmation{Signature: sig, Slot: uint64(index + 100), Commitment: backend.ConfirmationStatusConfirmed}, nil
}

func (l *fakeLedger) apply(balances map[solana.PublicKey]uint64, instruction solana.Instruction) error {
	data, _ := instruction.Data()
	accounts := instruction.Accounts()
	switch instruction.ProgramID() {
	case system.NewProgram().Id():
		if lamports, ok := system.DecodeTransfer(data); ok {
			from, to := accounts[0].PublicKey, accounts[1].PublicKey
			if balances[from] < lamports {
				return errors.New("insufficient lamports")
			}
			balances[from] -= lamports
			balances[to] += lamports
			return nil
		}
		if owner, ok := system.DecodeAssign(data); ok {
			l.owners[accounts[0].PublicKey] = owner
			return nil
		}
		return errors.New("unknown system instruction")
	case program.Evm:
		if lamports, _, ok := evm.DecodeSwapNativeToEther(data); ok {
			from := accounts[1].PublicKey
			if balances[from] < lamports {
				return errors.New("insufficient lamports")
			}
			balances[from] -= lamports
		}
		return nil
	case l.rejectProgram:
		return errors.New("custom program error: 0x21")
	}
	return nil
}

func (l *fakeLedger) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries++
	if l.balanceErr != nil {
		return 0, &backend.QueryError{Address: pubkey, Err: l.balanceErr}
	}
	return l.balances[pubkey], nil
}

func (l *fakeLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submits + l.queries
}
