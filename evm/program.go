package evm

import (
	"encoding/binary"
	"strings"

	"github.com/egaotan/solana-revertable/program"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Variants of the EVM loader instruction enum, bincode encoded as u32 LE.
const (
	commandEvmTransaction uint32 = iota
	commandSwapNativeToEther
	commandFreeOwnership
)

var ErrInvalidEtherAddress = errors.New("invalid ether address")

// ParseEtherAddress accepts a 20 byte hex address with or without 0x. An
// empty string yields the zero address.
func ParseEtherAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrap(ErrInvalidEtherAddress, s)
	}
	return common.HexToAddress(s), nil
}

// Program builds instructions for the EVM bridge of the ledger.
type Program struct {
	id    solana.PublicKey
	state solana.PublicKey
}

func NewProgram(id solana.PublicKey, state solana.PublicKey) *Program {
	return &Program{
		id:    id,
		state: state,
	}
}

func NewDefaultProgram() *Program {
	return NewProgram(program.Evm, program.EvmState)
}

func (p *Program) Name() string {
	return "evm"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

func (p *Program) State() solana.PublicKey {
	return p.state
}

// InstructionSwapNativeToEther credits lamports from owner to an ether
// address. owner must already be assigned to the EVM program.
//
//   0. [WRITE] EVM state account
//   1. [WRITE, SIGNER] Owner
func (p *Program) InstructionSwapNativeToEther(owner solana.PublicKey, lamports uint64, etherAddress common.Address) solana.Instruction {
	data := make([]byte, 4+8+common.AddressLength)
	binary.LittleEndian.PutUint32(data[0:], commandSwapNativeToEther)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	copy(data[12:], etherAddress.Bytes())
	return program.NewInstruction(p.id, data,
		program.NewAccountMeta(p.state, false, true),
		program.NewAccountMeta(owner, true, true),
	)
}

// InstructionFreeOwnership returns owner to the system program.
//
//   0. [WRITE] EVM state account
//   1. [WRITE, SIGNER] Owner
func (p *Program) InstructionFreeOwnership(owner solana.PublicKey) solana.Instruction {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data[0:], commandFreeOwnership)
	return program.NewInstruction(p.id, data,
		program.NewAccountMeta(p.state, false, true),
		program.NewAccountMeta(owner, true, true),
	)
}

func DecodeSwapNativeToEther(data []byte) (uint64, common.Address, bool) {
	if len(data) != 4+8+common.AddressLength || binary.LittleEndian.Uint32(data) != commandSwapNativeToEther {
		return 0, common.Address{}, false
	}
	return binary.LittleEndian.Uint64(data[4:]), common.BytesToAddress(data[12:]), true
}
