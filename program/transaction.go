package program

import (
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
)

// Transaction is an unsigned, blockhash free transaction. The submitter
// fills in the recent blockhash and signs with Signers right before sending.
type Transaction struct {
	Instructions []solana.Instruction
	FeePayer     solana.PublicKey
	Signers      []*wallet.Wallet
}

func NewTransaction(feePayer *wallet.Wallet, instructions ...solana.Instruction) *Transaction {
	return &Transaction{
		Instructions: instructions,
		FeePayer:     feePayer.PublicKey(),
		Signers:      []*wallet.Wallet{feePayer},
	}
}

// WithFeePayer charges fees to payer instead of the current fee payer and
// attaches payer as a signer. The receiver is not modified.
func (t *Transaction) WithFeePayer(payer *wallet.Wallet) *Transaction {
	out := &Transaction{
		Instructions: append([]solana.Instruction{}, t.Instructions...),
		FeePayer:     payer.PublicKey(),
		Signers:      []*wallet.Wallet{payer},
	}
	for _, signer := range t.Signers {
		if signer.PublicKey() != payer.PublicKey() {
			out.Signers = append(out.Signers, signer)
		}
	}
	return out
}

// RequiredSigners lists the fee payer followed by every signer account of
// every instruction, without duplicates.
func (t *Transaction) RequiredSigners() []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	required := make([]solana.PublicKey, 0)
	add := func(key solana.PublicKey) {
		if seen[key] {
			return
		}
		seen[key] = true
		required = append(required, key)
	}
	if t.FeePayer != (solana.PublicKey{}) {
		add(t.FeePayer)
	}
	for _, instruction := range t.Instructions {
		for _, account := range instruction.Accounts() {
			if account.IsSigner {
				add(account.PublicKey)
			}
		}
	}
	return required
}

func (t *Transaction) MissingSigners() []solana.PublicKey {
	missing := make([]solana.PublicKey, 0)
	for _, key := range t.RequiredSigners() {
		if t.Signer(key) == nil {
			missing = append(missing, key)
		}
	}
	return missing
}

// Signer returns the private key for key, or nil. Its shape matches the
// getter expected by solana.Transaction.Sign.
func (t *Transaction) Signer(key solana.PublicKey) *solana.PrivateKey {
	for _, signer := range t.Signers {
		if signer != nil && signer.PublicKey() == key {
			return signer.PrivateKey()
		}
	}
	return nil
}
