package wallet

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

var (
	ErrKeyLength   = errors.New("secret key has wrong length")
	ErrKeyMismatch = errors.New("public half of secret key does not match")
)

// KeyLoadError is returned for any key file that cannot be turned into a
// signer. It is a configuration error and is never retried.
type KeyLoadError struct {
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("load keypair %s: %s", e.Path, e.Err)
}

func (e *KeyLoadError) Cause() error {
	return e.Err
}

func (e *KeyLoadError) Unwrap() error {
	return e.Err
}

// Load reads a keypair file in the solana-keygen format, a JSON array of
// the 64 secret key bytes.
func Load(path string) (*Wallet, error) {
	pri, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, &KeyLoadError{Path: path, Err: err}
	}
	if err := checkSecretKey(pri); err != nil {
		return nil, &KeyLoadError{Path: path, Err: err}
	}
	return FromPrivateKey(pri), nil
}

func checkSecretKey(pri solana.PrivateKey) error {
	if len(pri) != ed25519.PrivateKeySize {
		return errors.Wrapf(ErrKeyLength, "got %d bytes, want %d", len(pri), ed25519.PrivateKeySize)
	}
	derived := ed25519.NewKeyFromSeed(pri[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, pri[ed25519.SeedSize:]) {
		return ErrKeyMismatch
	}
	return nil
}
