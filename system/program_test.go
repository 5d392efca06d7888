package system

import (
	"encoding/binary"
	"testing"

	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKeys(t *testing.T, n int) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, n)
	for i := 0; i < n; i++ {
		w, err := wallet.Generate()
		require.NoError(t, err)
		keys = append(keys, w.PublicKey())
	}
	return keys
}

func TestInstructionTransfer(t *testing.T) {
	keys := generateKeys(t, 2)
	p := NewProgram()

	for _, lamports := range []uint64{0, 1, 120000, 1<<64 - 1} {
		instruction := p.InstructionTransfer(keys[0], keys[1], lamports)
		data, err := instruction.Data()
		require.NoError(t, err)

		require.Len(t, data, 12)
		assert.EqualValues(t, 2, binary.LittleEndian.Uint32(data[0:4]))
		assert.Equal(t, lamports, binary.LittleEndian.Uint64(data[4:12]))

		decoded, ok := DecodeTransfer(data)
		assert.True(t, ok)
		assert.Equal(t, lamports, decoded)

		assert.Equal(t, program.System, instruction.ProgramID())
		assert.Equal(t, []*solana.AccountMeta{
			{PublicKey: keys[0], IsSigner: true, IsWritable: true},
			{PublicKey: keys[1], IsSigner: false, IsWritable: true},
		}, instruction.Accounts())
	}
}

func TestInstructionAssign(t *testing.T) {
	keys := generateKeys(t, 2)
	p := NewProgram()

	instruction := p.InstructionAssign(keys[0], keys[1])
	data, err := instruction.Data()
	require.NoError(t, err)

	require.Len(t, data, 36)
	assert.EqualValues(t, 1, binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, keys[1].Bytes(), data[4:])

	owner, ok := DecodeAssign(data)
	assert.True(t, ok)
	assert.Equal(t, keys[1], owner)

	_, ok = DecodeTransfer(data)
	assert.False(t, ok)

	assert.Equal(t, []*solana.AccountMeta{
		{PublicKey: keys[0], IsSigner: true, IsWritable: true},
	}, instruction.Accounts())
}
