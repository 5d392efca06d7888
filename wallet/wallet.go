package wallet

import (
	"encoding/json"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Wallet is a keypair able to sign for its public key.
type Wallet struct {
	pubkey solana.PublicKey
	prikey solana.PrivateKey
}

// Generate creates a fresh keypair. It is used for the ephemeral account
// of a run and is never written anywhere.
func Generate() (*Wallet, error) {
	pri, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate keypair")
	}
	return FromPrivateKey(pri), nil
}

func FromPrivateKey(pri solana.PrivateKey) *Wallet {
	return &Wallet{
		pubkey: pri.PublicKey(),
		prikey: pri,
	}
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.pubkey
}

func (w *Wallet) PrivateKey() *solana.PrivateKey {
	return &w.prikey
}

func (w *Wallet) Sign(payload []byte) (solana.Signature, error) {
	return w.prikey.Sign(payload)
}

// Save writes the keypair as a JSON array of bytes, the format Load reads.
func (w *Wallet) Save(path string) error {
	values := make([]int, len(w.prikey))
	for i, b := range w.prikey {
		values[i] = int(b)
	}
	keyJson, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to encode keypair")
	}
	return errors.Wrapf(os.WriteFile(path, keyJson, 0600), "failed to write keypair %s", path)
}
