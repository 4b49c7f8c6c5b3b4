package toncenter

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/tonsafe/tonsafe/wallet"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var _ wallet.Provider = (*Client)(nil)

type MasterchainInfo struct {
	Last          BlockID `json:"last"`
	StateRootHash []byte  `json:"state_root_hash"`
	Init          BlockID `json:"init"`
}

// GetMasterchainInfo /getMasterchainInfo
func (c *Client) GetMasterchainInfo(ctx context.Context) (*MasterchainInfo, error) {
	return doGET[MasterchainInfo](ctx, c, "getMasterchainInfo", nil)
}

// CurrentMasterchainInfo returns the latest masterchain block reference.
func (c *Client) CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error) {
	info, err := c.GetMasterchainInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &ton.BlockIDExt{
		Workchain: info.Last.Workchain,
		Shard:     info.Last.Shard,
		SeqNo:     uint32(info.Last.Seqno),
		RootHash:  info.Last.RootHash,
		FileHash:  info.Last.FileHash,
	}, nil
}

type AddressInformation struct {
	Balance           NanoCoins     `json:"balance"`
	Code              string        `json:"code"` // base64 boc, empty when none
	Data              string        `json:"data"`
	LastTransactionID TransactionID `json:"last_transaction_id"`
	FrozenHash        string        `json:"frozen_hash"`
	State             string        `json:"state"` // "active", "uninitialized", "frozen"
}

// GetAddressInformation /getAddressInformation
func (c *Client) GetAddressInformation(ctx context.Context, addr *address.Address) (*AddressInformation, error) {
	q := url.Values{"address": []string{addr.String()}}
	return doGET[AddressInformation](ctx, c, "getAddressInformation", q)
}

// GetAccount returns the account state of addr. The block argument is
// accepted for provider compatibility, api/v2 always serves the latest
// committed state.
func (c *Client) GetAccount(ctx context.Context, block *ton.BlockIDExt, addr *address.Address) (*tlb.Account, error) {
	info, err := c.GetAddressInformation(ctx, addr)
	if err != nil {
		return nil, err
	}

	acc := &tlb.Account{
		LastTxLT:   info.LastTransactionID.LT,
		LastTxHash: info.LastTransactionID.Hash,
	}

	// addresses the chain has never seen have no state at all
	if info.State == "" || (info.State == "uninitialized" &&
		info.LastTransactionID.LT == 0 && info.Balance.Nano().Sign() == 0) {
		return acc, nil
	}

	st := &tlb.AccountState{
		IsValid: true,
		Address: addr,
	}
	st.Balance = info.Balance.TON()
	st.LastTransactionLT = info.LastTransactionID.LT

	switch info.State {
	case "active":
		st.Status = tlb.AccountStatusActive
	case "frozen":
		st.Status = tlb.AccountStatusFrozen
	default:
		st.Status = tlb.AccountStatusUninit
	}

	if info.Code != "" {
		acc.Code, err = parseBocBase64(info.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to parse account code: %w", err)
		}
	}
	if info.Data != "" {
		acc.Data, err = parseBocBase64(info.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse account data: %w", err)
		}
	}

	acc.IsActive = true
	acc.State = st
	return acc, nil
}

// RunGetMethod executes a get method of the contract via /runGetMethod.
// Stack elements could be *cell.Cell, *cell.Slice, *address.Address and
// *big.Int. Only num results are supported by api/v2, use a lite server
// connection for methods returning cells.
func (c *Client) RunGetMethod(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error) {
	type runGetMethodRequest struct {
		Address string     `json:"address"`
		Method  string     `json:"method"`
		Stack   [][]string `json:"stack"`
	}

	type runGetMethodResult struct {
		GasUsed  uint64  `json:"gas_used"`
		Stack    [][]any `json:"stack"`
		ExitCode int     `json:"exit_code"`
	}

	var stk = [][]string{}
	for _, p := range params {
		switch val := p.(type) {
		case *cell.Cell:
			stk = append(stk, []string{"tvm.Cell", base64.StdEncoding.EncodeToString(val.ToBOC())})
		case *cell.Slice:
			stk = append(stk, []string{"tvm.Slice", base64.StdEncoding.EncodeToString(val.MustToCell().ToBOC())})
		case *address.Address:
			stk = append(stk, []string{"tvm.Slice", base64.StdEncoding.EncodeToString(cell.BeginCell().MustStoreAddr(val).EndCell().ToBOC())})
		case *big.Int:
			if val == nil {
				return nil, fmt.Errorf("nil big.Int")
			}
			// the sign goes before the prefix, api/v2 rejects "0x-5"
			num := val.Text(16)
			if val.Sign() < 0 {
				num = "-0x" + num[1:]
			} else {
				num = "0x" + num
			}
			stk = append(stk, []string{"num", num})
		default:
			return nil, fmt.Errorf("unsupported stack element type")
		}
	}

	res, err := doPOST[runGetMethodResult](ctx, c, "runGetMethod", runGetMethodRequest{
		Address: addr.String(),
		Method:  method,
		Stack:   stk,
	})
	if err != nil {
		return nil, err
	}

	if res.ExitCode != 0 && res.ExitCode != 1 {
		code := int32(res.ExitCode)
		// api/v2 reports a method call on a non-deployed contract with
		// tvm exit code -13, lite servers use -256 for the same case
		if code == -13 {
			code = ton.ErrCodeContractNotInitialized
		}
		return nil, ton.ContractExecError{Code: code}
	}

	stack, err := parseStack(res.Stack)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stack: %w", err)
	}

	return ton.NewExecutionResult(stack), nil
}

func parseStack(stack [][]any) ([]any, error) {
	var stk []any
	for _, a := range stack {
		if len(a) != 2 {
			return nil, fmt.Errorf("incorrect stack element")
		}

		name, ok := a[0].(string)
		if !ok {
			return nil, fmt.Errorf("incorrect stack element name type")
		}

		val, ok := a[1].(string)
		if !ok {
			return nil, fmt.Errorf("result stack type '%s' is not supported by api/v2 due to incompatible format, use a lite server connection", name)
		}

		switch name {
		case "num":
			// negative numbers come back as "-0x…"
			neg := strings.HasPrefix(val, "-")
			if neg {
				val = val[1:]
			}
			if !strings.HasPrefix(val, "0x") {
				return nil, fmt.Errorf("invalid number format")
			}
			val = val[2:]

			res, _ := new(big.Int).SetString(val, 16)
			if res == nil {
				return nil, fmt.Errorf("invalid number format")
			}
			if neg {
				res.Neg(res)
			}

			stk = append(stk, res)
		default:
			return nil, fmt.Errorf("unsupported stack element type")
		}
	}
	return stk, nil
}

// SendBoc submits a serialized bag of cells via /sendBoc.
func (c *Client) SendBoc(ctx context.Context, boc []byte) error {
	_, err := doPOST[any](ctx, c, "sendBoc", map[string][]byte{
		"boc": boc,
	})
	return err
}

// SendExternalMessage serializes msg and submits it to the network.
func (c *Client) SendExternalMessage(ctx context.Context, msg *tlb.ExternalMessage) error {
	msgCell, err := tlb.ToCell(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize external message: %w", err)
	}
	return c.SendBoc(ctx, msgCell.ToBOC())
}

func parseBocBase64(s string) (*cell.Cell, error) {
	boc, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return cell.FromBOC(boc)
}
