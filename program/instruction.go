package program

import "github.com/gagliardetto/solana-go"

// Instruction is an immutable solana.Instruction. Accounts and data are
// copied in and out so a built instruction can be shared freely.
type Instruction struct {
	accounts  []*solana.AccountMeta
	data      []byte
	programID solana.PublicKey
}

func NewInstruction(programID solana.PublicKey, data []byte, accounts ...*solana.AccountMeta) *Instruction {
	return &Instruction{
		accounts:  copyMetas(accounts),
		data:      append([]byte{}, data...),
		programID: programID,
	}
}

func NewAccountMeta(pubkey solana.PublicKey, isSigner bool, isWritable bool) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: pubkey, IsSigner: isSigner, IsWritable: isWritable}
}

func (i *Instruction) Accounts() []*solana.AccountMeta {
	return copyMetas(i.accounts)
}

func (i *Instruction) ProgramID() solana.PublicKey {
	return i.programID
}

func (i *Instruction) Data() ([]byte, error) {
	return append([]byte{}, i.data...), nil
}

func copyMetas(metas []*solana.AccountMeta) []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, 0, len(metas))
	for _, meta := range metas {
		if meta == nil {
			continue
		}
		m := *meta
		out = append(out, &m)
	}
	return out
}
