package toncenter

import (
	"encoding/json"
	"math/big"

	"github.com/xssnick/tonutils-go/tlb"
)

type TransactionID struct {
	LT   uint64 `json:"lt,string"`
	Hash []byte `json:"hash"`
}

type BlockID struct {
	Workchain int32  `json:"workchain"`
	Shard     int64  `json:"shard,string"`
	Seqno     uint64 `json:"seqno"`
	RootHash  []byte `json:"root_hash"`
	FileHash  []byte `json:"file_hash"`
}

// NanoCoins is a toncenter amount, a decimal string of nanotons.
type NanoCoins struct {
	val *big.Int
}

func (n *NanoCoins) Nano() *big.Int {
	if n.val == nil {
		return big.NewInt(0)
	}
	return n.val
}

func (n *NanoCoins) TON() tlb.Coins {
	return tlb.FromNanoTON(n.Nano())
}

func (n *NanoCoins) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.val = new(big.Int)
	return n.val.UnmarshalText([]byte(s))
}

func (n *NanoCoins) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Nano().String())
}
