package revertable

import (
	"github.com/egaotan/solana-revertable/evm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Payload encodes the invoke instruction data: the 20 byte ether address
// the bridged lamports are credited to. Any other length makes the program
// fall back to the zero address.
func Payload(etherAddress string) ([]byte, error) {
	addr, err := evm.ParseEtherAddress(etherAddress)
	if err != nil {
		return nil, err
	}
	return addr.Bytes(), nil
}

func EtherAddressFromPayload(payload []byte) (common.Address, error) {
	switch len(payload) {
	case 0:
		return common.Address{}, nil
	case common.AddressLength:
		return common.BytesToAddress(payload), nil
	default:
		return common.Address{}, errors.Wrapf(evm.ErrInvalidEtherAddress, "payload of %d bytes", len(payload))
	}
}
