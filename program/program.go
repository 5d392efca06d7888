package program

import "github.com/gagliardetto/solana-go"

var (
	System = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// EVM compatibility layer of the ledger. Both accounts are fixed by the
// runtime; config may override them for test clusters.
var (
	Evm      = solana.MustPublicKeyFromBase58("EVM1111111111111111111111111111111111111111")
	EvmState = solana.MustPublicKeyFromBase58("EvmState11111111111111111111111111111111111")
)

const (
	LamportsPerNative = 1000000000
	// DefaultFundLamports is what a run transfers into the ephemeral account.
	DefaultFundLamports = uint64(120000)
	// DefaultBridgeLamports is what a bridge step swaps to the ether address.
	DefaultBridgeLamports = uint64(10000)
)
