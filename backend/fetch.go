package backend

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// GetBalance returns the lamports of pubkey at confirmed commitment. An
// address the ledger has never seen has a balance of zero.
func (backend *Backend) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	balance, err := backend.client.Balance(ctx, pubkey)
	if err != nil {
		return 0, &QueryError{Address: pubkey, Err: err}
	}
	return balance, nil
}
