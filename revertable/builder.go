// Package revertable builds the transactions of a revertable invoke run:
// fund, assign and invoke, plus the direct bridge transaction. Builders are pure; existence and balance of
// the accounts are only checked by the ledger at submission time.
package revertable

import (
	"math/big"
	"strings"

	"github.com/egaotan/solana-revertable/evm"
	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/system"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

var ErrInvalidAmount = errors.New("amount must be a non-negative integer of lamports")

var systemProgram = system.NewProgram()

// BuildFund transfers amount lamports from payer to recipient. payer pays
// the fee and is the only signer.
func BuildFund(payer *wallet.Wallet, recipient solana.PublicKey, amount uint64) *program.Transaction {
	return program.NewTransaction(payer, systemProgram.InstructionTransfer(payer.PublicKey(), recipient, amount))
}

// BuildAssign reassigns owner's account to targetProgram. owner is the sole
// signer; use WithFeePayer to charge the fee elsewhere.
func BuildAssign(owner *wallet.Wallet, targetProgram solana.PublicKey) *program.Transaction {
	return program.NewTransaction(owner, systemProgram.InstructionAssign(owner.PublicKey(), targetProgram))
}

// InvokeAccounts returns the account layout the invoked program expects:
// revert target, user, and in the extended variant the EVM program and its
// state account.
func InvokeAccounts(user solana.PublicKey, revertProgram solana.PublicKey, bridge *evm.Program) []*solana.AccountMeta {
	metas := []*solana.AccountMeta{
		program.NewAccountMeta(revertProgram, false, true),
		program.NewAccountMeta(user, true, true),
	}
	if bridge != nil {
		metas = append(metas,
			program.NewAccountMeta(bridge.Id(), false, false),
			program.NewAccountMeta(bridge.State(), false, true),
		)
	}
	return metas
}

// BuildInvoke calls invokeProgram on behalf of user. bridge selects the
// extended account layout; nil builds the basic one.
func BuildInvoke(user *wallet.Wallet, invokeProgram solana.PublicKey, revertProgram solana.PublicKey, payload []byte, bridge *evm.Program) *program.Transaction {
	metas := InvokeAccounts(user.PublicKey(), revertProgram, bridge)
	return program.NewTransaction(user, BuildInvokeWithAccounts(invokeProgram, metas, payload))
}

// BuildInvokeWithAccounts keeps metas in exactly the given order. The
// payload is passed through unchecked.
func BuildInvokeWithAccounts(invokeProgram solana.PublicKey, metas []*solana.AccountMeta, payload []byte) solana.Instruction {
	return program.NewInstruction(invokeProgram, payload, metas...)
}

// BuildBridge sends the EVM bridge instructions directly from owner: assign
// to the EVM program, swap lamports to an ether address, free ownership.
// It is the sequence the revertable program issues through cross-program
// calls, without the deliberate revert.
func BuildBridge(owner *wallet.Wallet, bridge *evm.Program, lamports uint64, payload []byte) (*program.Transaction, error) {
	etherAddress, err := EtherAddressFromPayload(payload)
	if err != nil {
		return nil, err
	}
	return program.NewTransaction(owner,
		systemProgram.InstructionAssign(owner.PublicKey(), bridge.Id()),
		bridge.InstructionSwapNativeToEther(owner.PublicKey(), lamports, etherAddress),
		bridge.InstructionFreeOwnership(owner.PublicKey()),
	), nil
}

// ParseAmount validates a lamport amount given as text.
func ParseAmount(s string) (uint64, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() < 0 || !n.IsUint64() {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", s)
	}
	return n.Uint64(), nil
}
