package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// AddressFromPubKey derives the basechain address of a wallet contract.
// The result depends only on the arguments, no network access happens.
func AddressFromPubKey(key ed25519.PublicKey, ver Version, subwallet uint32) (*address.Address, error) {
	state, err := GetStateInit(key, ver, subwallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	stateCell, err := tlb.ToCell(state)
	if err != nil {
		return nil, fmt.Errorf("failed to get state cell: %w", err)
	}

	return address.NewAddress(0, 0, stateCell.Hash()), nil
}

// GetStateInit builds the initial code and data of a wallet contract.
func GetStateInit(pubKey ed25519.PublicKey, ver Version, subWallet uint32) (*tlb.StateInit, error) {
	switch ver {
	case V3R1, V3R2:
	default:
		return nil, ErrUnsupportedWalletVersion
	}

	code, ok := walletCode[ver]
	if !ok {
		return nil, ErrUnsupportedWalletVersion
	}

	data := cell.BeginCell().
		MustStoreUInt(0, 32). // initial seqno
		MustStoreUInt(uint64(subWallet), 32).
		MustStoreSlice(pubKey, 256).
		EndCell()

	return &tlb.StateInit{
		Data: data,
		Code: code,
	}, nil
}
