package toncenter

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tonsafe/tonsafe/wallet"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

func respond(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{
		"ok":     true,
		"result": result,
	})
}

func TestClient_CurrentMasterchainInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/getMasterchainInfo" {
			t.Fatal("unexpected path", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Fatal("api key not set")
		}

		respond(w, map[string]any{
			"last": map[string]any{
				"workchain": -1,
				"shard":     "-9223372036854775808",
				"seqno":     34002,
				"root_hash": base64.StdEncoding.EncodeToString(make([]byte, 32)),
				"file_hash": base64.StdEncoding.EncodeToString(make([]byte, 32)),
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("test-key"))

	block, err := c.CurrentMasterchainInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if block.Workchain != -1 || block.SeqNo != 34002 {
		t.Fatal("block not match", block)
	}
	if block.Shard != -9223372036854775808 {
		t.Fatal("shard not match", block.Shard)
	}
	if len(block.RootHash) != 32 || len(block.FileHash) != 32 {
		t.Fatal("hashes not match")
	}
}

func TestClient_GetAccount(t *testing.T) {
	codeCell := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	dataCell := cell.BeginCell().MustStoreUInt(0xDA7A, 16).EndCell()

	var state string
	var balance string
	var lt string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/getAddressInformation" {
			t.Fatal("unexpected path", r.URL.Path)
		}
		if r.URL.Query().Get("address") == "" {
			t.Fatal("address not passed")
		}

		code, data := "", ""
		if state == "active" {
			code = base64.StdEncoding.EncodeToString(codeCell.ToBOC())
			data = base64.StdEncoding.EncodeToString(dataCell.ToBOC())
		}

		respond(w, map[string]any{
			"balance": balance,
			"code":    code,
			"data":    data,
			"last_transaction_id": map[string]any{
				"lt":   lt,
				"hash": base64.StdEncoding.EncodeToString(make([]byte, 32)),
			},
			"state": state,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	addr := address.MustParseAddr("EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP")

	state, balance, lt = "active", "1527000000", "123"
	acc, err := c.GetAccount(context.Background(), nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	if !acc.IsActive || acc.State.Status != tlb.AccountStatusActive {
		t.Fatal("account should be active")
	}
	if acc.State.Balance.String() != "1.527" {
		t.Fatal("balance not match, got", acc.State.Balance.String())
	}
	if acc.LastTxLT != 123 || acc.State.LastTransactionLT != 123 {
		t.Fatal("last tx lt not match")
	}
	if !bytes.Equal(acc.Code.Hash(), codeCell.Hash()) {
		t.Fatal("code not match")
	}
	if !bytes.Equal(acc.Data.Hash(), dataCell.Hash()) {
		t.Fatal("data not match")
	}

	// funded but not deployed
	state, balance, lt = "uninitialized", "100", "0"
	acc, err = c.GetAccount(context.Background(), nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	if !acc.IsActive || acc.State.Status != tlb.AccountStatusUninit {
		t.Fatal("funded account should have uninit state")
	}
	if acc.State.Balance.Nano().Int64() != 100 {
		t.Fatal("balance not match")
	}

	// never seen by the chain
	state, balance, lt = "uninitialized", "0", "0"
	acc, err = c.GetAccount(context.Background(), nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	if acc.IsActive || acc.State != nil {
		t.Fatal("unknown account should have no state")
	}
}

func TestClient_RunGetMethod(t *testing.T) {
	var exitCode int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/runGetMethod" {
			t.Fatal("unexpected path", r.URL.Path)
		}

		var req struct {
			Address string     `json:"address"`
			Method  string     `json:"method"`
			Stack   [][]string `json:"stack"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Method != "seqno" {
			t.Fatal("method not match", req.Method)
		}
		if req.Address == "" {
			t.Fatal("address not passed")
		}
		if len(req.Stack) != 2 || req.Stack[0][0] != "num" || req.Stack[0][1] != "0x7" {
			t.Fatal("stack not match", req.Stack)
		}
		// negative numbers carry the sign before the prefix
		if req.Stack[1][1] != "-0x5" {
			t.Fatal("negative param not match", req.Stack)
		}

		respond(w, map[string]any{
			"gas_used":  777,
			"stack":     [][]any{{"num", "0x3"}, {"num", "-0x1"}},
			"exit_code": exitCode,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	addr := address.MustParseAddr("EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP")

	exitCode = 0
	res, err := c.RunGetMethod(context.Background(), nil, addr, "seqno", big.NewInt(7), big.NewInt(-5))
	if err != nil {
		t.Fatal(err)
	}

	seqno, err := res.Int(0)
	if err != nil {
		t.Fatal(err)
	}
	if seqno.Int64() != 3 {
		t.Fatal("seqno not match", seqno)
	}

	neg, err := res.Int(1)
	if err != nil {
		t.Fatal(err)
	}
	if neg.Int64() != -1 {
		t.Fatal("negative number should round-trip, got", neg)
	}

	exitCode = 4
	_, err = c.RunGetMethod(context.Background(), nil, addr, "seqno", big.NewInt(7), big.NewInt(-5))
	if !errors.Is(err, ton.ContractExecError{Code: 4}) {
		t.Fatal("exit code should map to exec error, got", err)
	}

	// non-deployed contract code is translated to the lite server convention
	exitCode = -13
	_, err = c.RunGetMethod(context.Background(), nil, addr, "seqno", big.NewInt(7), big.NewInt(-5))
	if !errors.Is(err, ton.ContractExecError{Code: ton.ErrCodeContractNotInitialized}) {
		t.Fatal("uninitialized code should be translated, got", err)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "something went wrong",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetMasterchainInfo(context.Background())
	if err == nil || !strings.Contains(err.Error(), "something went wrong") {
		t.Fatal("api error should propagate, got", err)
	}
}

func TestClient_WalletSend(t *testing.T) {
	pkey := ed25519.NewKeyFromSeed([]byte("12345678901234567890123456789012"))

	var walletAddr string
	var sentBoc []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/getMasterchainInfo":
			respond(w, map[string]any{
				"last": map[string]any{"workchain": -1, "shard": "0", "seqno": 100},
			})
		case "/api/v2/getAddressInformation":
			respond(w, map[string]any{
				"balance":             "1000000000",
				"code":                "",
				"data":                "",
				"last_transaction_id": map[string]any{"lt": "0", "hash": ""},
				"state":               "uninitialized",
			})
		case "/api/v2/runGetMethod":
			respond(w, map[string]any{
				"gas_used":  0,
				"stack":     [][]any{},
				"exit_code": -13,
			})
		case "/api/v2/sendBoc":
			var req struct {
				Boc []byte `json:"boc"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			sentBoc = req.Boc
			respond(w, map[string]any{})
		default:
			t.Fatal("unexpected path", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)

	w, err := wallet.FromPrivateKey(c, pkey, wallet.V3)
	if err != nil {
		t.Fatal(err)
	}
	walletAddr = w.Address().String()

	transfer, err := w.BuildTransfer(address.MustParseAddr("EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP"), tlb.MustFromTON("0.05"), false, "hi")
	if err != nil {
		t.Fatal(err)
	}

	if err = w.Send(context.Background(), transfer); err != nil {
		t.Fatal(err)
	}

	if len(sentBoc) == 0 {
		t.Fatal("nothing was sent")
	}

	msgCell, err := cell.FromBOC(sentBoc)
	if err != nil {
		t.Fatal(err)
	}

	var msg tlb.Message
	if err = tlb.LoadFromCell(&msg, msgCell.BeginParse()); err != nil {
		t.Fatal(err)
	}

	ext := msg.AsExternalIn()
	if ext == nil {
		t.Fatal("not an external in message")
	}
	if ext.DstAddr.String() != walletAddr {
		t.Fatal("message should go to the wallet")
	}
	if ext.StateInit == nil {
		t.Fatal("first message from a funded wallet should carry state init")
	}
}

func TestClient_SendExternalMessage(t *testing.T) {
	var sentBoc []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/sendBoc" {
			t.Fatal("unexpected path", r.URL.Path)
		}
		var req struct {
			Boc []byte `json:"boc"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		sentBoc = req.Boc
		respond(w, map[string]any{})
	}))
	defer srv.Close()

	c := New(srv.URL)

	dst := address.MustParseAddr("EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP")
	body := cell.BeginCell().MustStoreUInt(777, 64).EndCell()

	err := c.SendExternalMessage(context.Background(), &tlb.ExternalMessage{
		DstAddr: dst,
		Body:    body,
	})
	if err != nil {
		t.Fatal(err)
	}

	msgCell, err := cell.FromBOC(sentBoc)
	if err != nil {
		t.Fatal(err)
	}

	var msg tlb.Message
	if err = tlb.LoadFromCell(&msg, msgCell.BeginParse()); err != nil {
		t.Fatal(err)
	}

	ext := msg.AsExternalIn()
	if ext == nil {
		t.Fatal("not an external in message")
	}
	if ext.DstAddr.String() != dst.String() {
		t.Fatal("destination not match")
	}
	if !bytes.Equal(ext.Body.Hash(), body.Hash()) {
		t.Fatal("body not match")
	}
}

func TestSlidingLimiter(t *testing.T) {
	window := 100 * time.Millisecond
	l := newSlidingLimiter(2, window)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := l.wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) >= window {
		t.Fatal("first requests within the limit should not block")
	}

	if err := l.wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < window {
		t.Fatal("request over the limit should wait for the window")
	}

	l = newSlidingLimiter(1, time.Minute)
	if err := l.wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("blocked wait should respect the context, got", err)
	}
}
