package wallet

import (
	"context"

	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

type RegularBuilder interface {
	BuildMessage(ctx context.Context, isInitialized bool, block *ton.BlockIDExt, messages []*Message) (*cell.Cell, error)
}

type SpecRegular struct {
	wallet *Wallet

	// TTL of the messages that were sent from this wallet.
	// Expires the transaction if it does not confirm in time.
	// use SetMessagesTTL if you want to change.
	messagesTTL uint32
}

func (s *SpecRegular) SetMessagesTTL(ttl uint32) {
	s.messagesTTL = ttl
}

type SpecSeqno struct {
	// Instead of calling contract 'seqno' method,
	// this function will be used (if not nil) to get seqno for new transaction.
	// You may use it to set seqno according to your own logic,
	// for example for additional idempotency or offline signing.
	seqnoFetcher func(ctx context.Context, subWallet uint32) (uint32, error)
}

func (s *SpecSeqno) SetSeqnoFetcher(fetcher func(ctx context.Context, subWallet uint32) (uint32, error)) {
	s.seqnoFetcher = fetcher
}
