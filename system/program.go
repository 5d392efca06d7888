package system

import (
	"encoding/binary"

	"github.com/egaotan/solana-revertable/program"
	"github.com/gagliardetto/solana-go"
)

const (
	commandCreateAccount uint32 = iota
	commandAssign
	commandTransfer
)

// Program builds system program instructions. It never touches the network.
type Program struct {
	id solana.PublicKey
}

func NewProgram() *Program {
	return &Program{
		id: program.System,
	}
}

func (p *Program) Name() string {
	return "system"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

// InstructionTransfer moves lamports between two system owned accounts.
//
//   0. [WRITE, SIGNER] Funding account
//   1. [WRITE] Recipient account
func (p *Program) InstructionTransfer(fromKey solana.PublicKey, toKey solana.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], commandTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return program.NewInstruction(p.id, data,
		program.NewAccountMeta(fromKey, true, true),
		program.NewAccountMeta(toKey, false, true),
	)
}

// InstructionAssign hands ownership of account to ownerId.
//
//   0. [WRITE, SIGNER] Assigned account
func (p *Program) InstructionAssign(account solana.PublicKey, ownerId solana.PublicKey) solana.Instruction {
	data := make([]byte, 36)
	binary.LittleEndian.PutUint32(data[0:], commandAssign)
	copy(data[4:], ownerId.Bytes())
	return program.NewInstruction(p.id, data,
		program.NewAccountMeta(account, true, true),
	)
}

// DecodeTransfer returns the lamports of a transfer payload.
func DecodeTransfer(data []byte) (uint64, bool) {
	if len(data) != 12 || binary.LittleEndian.Uint32(data) != commandTransfer {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[4:]), true
}

// DecodeAssign returns the new owner of an assign payload.
func DecodeAssign(data []byte) (solana.PublicKey, bool) {
	if len(data) != 36 || binary.LittleEndian.Uint32(data) != commandAssign {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(data[4:]), true
}
