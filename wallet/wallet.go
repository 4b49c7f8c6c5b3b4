package wallet

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"time"

	"github.com/xssnick/tonutils-go/adnl"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// defined as vars to mock in tests
var timeNow = time.Now
var seqnoPollInterval = 1500 * time.Millisecond

var (
	ErrUnsupportedWalletVersion = errors.New("wallet version is not supported")
	ErrNoSigner                 = errors.New("wallet has no signer")
)

// Provider is the part of the blockchain client the wallet talks to.
// Satisfied by *ton.APIClient and by *toncenter.Client, or by anything
// able to read chain state and accept external messages.
type Provider interface {
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	GetAccount(ctx context.Context, block *ton.BlockIDExt, addr *address.Address) (*tlb.Account, error)
	RunGetMethod(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error)
	SendExternalMessage(ctx context.Context, msg *tlb.ExternalMessage) error
}

type Message struct {
	Mode            uint8
	InternalMessage *tlb.InternalMessage
}

// Signer produces an ed25519 signature over the representation hash of
// the given cell. Lets the key live outside the process (HSM, remote
// signer); FromPrivateKey installs a local one.
type Signer func(ctx context.Context, payload *cell.Cell) ([]byte, error)

type Wallet struct {
	api    Provider
	key    ed25519.PrivateKey
	pubKey ed25519.PublicKey
	ver    Version

	// Can be used to operate multiple wallets with the same key and version.
	// use GetSubwallet if you need it.
	subwallet uint32
	workchain int32

	// derived once at construction, never changes
	state *tlb.StateInit
	addr  *address.Address

	// version related message building
	spec any

	signer Signer
}

type Option func(*Wallet)

// WithSubwalletID overrides the wallet instance id mixed into the
// contract data. Default is DefaultSubwallet.
func WithSubwalletID(id uint32) Option {
	return func(w *Wallet) {
		w.subwallet = id
	}
}

// WithWorkchain sets the chain the address is derived for. Default is 0,
// the basechain.
func WithWorkchain(workchain int32) Option {
	return func(w *Wallet) {
		w.workchain = workchain
	}
}

func FromPrivateKey(api Provider, key ed25519.PrivateKey, version Version, options ...Option) (*Wallet, error) {
	signer := func(ctx context.Context, c *cell.Cell) ([]byte, error) {
		if c == nil {
			return nil, fmt.Errorf("cannot sign: cell is nil")
		}
		return c.Sign(key), nil
	}

	return newWallet(api, key.Public().(ed25519.PublicKey), version, append(options,
		withPrivateKey(key),
		withSigner(signer))...)
}

// FromSigner builds a wallet whose payloads are signed externally.
func FromSigner(api Provider, publicKey ed25519.PublicKey, version Version, signer Signer, options ...Option) (*Wallet, error) {
	return newWallet(api, publicKey, version, append(options, withSigner(signer))...)
}

// FromPublicKey builds a read-only wallet: address derivation and chain
// reads work, signing operations return ErrNoSigner.
func FromPublicKey(api Provider, publicKey ed25519.PublicKey, version Version, options ...Option) (*Wallet, error) {
	return newWallet(api, publicKey, version, options...)
}

func newWallet(api Provider, publicKey ed25519.PublicKey, version Version, options ...Option) (*Wallet, error) {
	w := &Wallet{
		api:       api,
		ver:       version,
		subwallet: DefaultSubwallet,
		pubKey:    publicKey,
	}

	for _, opt := range options {
		opt(w)
	}

	if err := w.initDerived(); err != nil {
		return nil, err
	}

	return w, nil
}

// initDerived computes the immutable (code, data, address) triple and
// binds the version specific message builder.
func (w *Wallet) initDerived() (err error) {
	w.state, err = GetStateInit(w.pubKey, w.ver, w.subwallet)
	if err != nil {
		return fmt.Errorf("failed to get state init: %w", err)
	}

	stateCell, err := tlb.ToCell(w.state)
	if err != nil {
		return fmt.Errorf("failed to get state cell: %w", err)
	}
	w.addr = address.NewAddress(0, byte(w.workchain), stateCell.Hash())

	w.spec, err = getSpec(w)
	return err
}

func withPrivateKey(privateKey ed25519.PrivateKey) Option {
	return func(w *Wallet) {
		w.key = privateKey
	}
}

func withSigner(signer Signer) Option {
	return func(w *Wallet) {
		w.signer = signer
	}
}

func getSpec(w *Wallet) (any, error) {
	switch w.ver {
	case V3R1, V3R2:
		regular := SpecRegular{
			wallet:      w,
			messagesTTL: 60 * 3, // default ttl 3 min
		}

		seqnoFetcher := func(ctx context.Context, subWallet uint32) (uint32, error) {
			block, err := w.api.CurrentMasterchainInfo(ctx)
			if err != nil {
				return 0, fmt.Errorf("failed to get block: %w", err)
			}
			return w.getSeqno(ctx, block)
		}

		return &SpecV3{regular, SpecSeqno{seqnoFetcher: seqnoFetcher}}, nil
	}

	return nil, fmt.Errorf("cannot init spec: %w", ErrUnsupportedWalletVersion)
}

func (w *Wallet) signCell(ctx context.Context, c *cell.Cell) ([]byte, error) {
	if w.signer == nil {
		return nil, ErrNoSigner
	}
	return w.signer(ctx, c)
}

// Address returns the bounceable form of the wallet address.
func (w *Wallet) Address() *address.Address {
	return w.addr
}

// WalletAddress returns the standard non bounce form of the address,
// the one to show to users and to receive funds on.
func (w *Wallet) WalletAddress() *address.Address {
	return w.addr.Bounce(false)
}

func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.key
}

func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.pubKey
}

func (w *Wallet) Version() Version {
	return w.ver
}

func (w *Wallet) Workchain() int32 {
	return w.workchain
}

// StateInit returns the contract code and data the address was derived from.
func (w *Wallet) StateInit() *tlb.StateInit {
	return w.state
}

// GetSubwallet returns a sibling wallet: same key, version and chain,
// different instance id and therefore different address.
func (w *Wallet) GetSubwallet(subwallet uint32) (*Wallet, error) {
	sub := &Wallet{
		api:       w.api,
		key:       w.key,
		pubKey:    w.pubKey,
		ver:       w.ver,
		subwallet: subwallet,
		workchain: w.workchain,
		signer:    w.signer,
	}

	if err := sub.initDerived(); err != nil {
		return nil, err
	}

	return sub, nil
}

func (w *Wallet) GetSubwalletID() uint32 {
	return w.subwallet
}

func (w *Wallet) GetBalance(ctx context.Context) (tlb.Coins, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return tlb.Coins{}, fmt.Errorf("failed to get block: %w", err)
	}

	acc, err := w.api.GetAccount(ctx, block, w.addr)
	if err != nil {
		return tlb.Coins{}, fmt.Errorf("failed to get account state: %w", err)
	}

	if !acc.IsActive {
		return tlb.Coins{}, nil
	}

	return acc.State.Balance, nil
}

// GetSeqno reads the current sequence number of the wallet contract.
// A not yet deployed wallet reports 0.
func (w *Wallet) GetSeqno(ctx context.Context) (uint32, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block: %w", err)
	}
	return w.getSeqno(ctx, block)
}

func (w *Wallet) getSeqno(ctx context.Context, block *ton.BlockIDExt) (uint32, error) {
	resp, err := w.api.RunGetMethod(ctx, block, w.addr, "seqno")
	if err != nil {
		if cErr, ok := err.(ton.ContractExecError); ok && cErr.Code == ton.ErrCodeContractNotInitialized {
			return 0, nil
		}
		return 0, fmt.Errorf("get seqno err: %w", err)
	}

	iSeq, err := resp.Int(0)
	if err != nil {
		return 0, fmt.Errorf("failed to parse seqno: %w", err)
	}
	return uint32(iSeq.Uint64()), nil
}

func (w *Wallet) GetSpec() any {
	return w.spec
}

func (w *Wallet) BuildExternalMessage(ctx context.Context, message *Message) (*tlb.ExternalMessage, error) {
	return w.BuildExternalMessageForMany(ctx, []*Message{message})
}

func (w *Wallet) BuildExternalMessageForMany(ctx context.Context, messages []*Message) (*tlb.ExternalMessage, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	acc, err := w.api.GetAccount(ctx, block, w.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account state: %w", err)
	}

	initialized := acc.IsActive && acc.State.Status == tlb.AccountStatusActive
	return w.PrepareExternalMessageForMany(ctx, !initialized, messages)
}

// PrepareExternalMessageForMany signs the messages into an external
// message ready for submission. Can be used directly for offline signing,
// a custom seqno fetcher should be set in that case.
func (w *Wallet) PrepareExternalMessageForMany(ctx context.Context, withStateInit bool, messages []*Message) (_ *tlb.ExternalMessage, err error) {
	var stateInit *tlb.StateInit
	if withStateInit {
		stateInit = w.state
	}

	var msg *cell.Cell
	switch w.ver {
	case V3R1, V3R2:
		msg, err = w.spec.(RegularBuilder).BuildMessage(ctx, !withStateInit, nil, messages)
		if err != nil {
			return nil, fmt.Errorf("build message err: %w", err)
		}
	default:
		return nil, fmt.Errorf("send is not yet supported: %w", ErrUnsupportedWalletVersion)
	}

	return &tlb.ExternalMessage{
		DstAddr:   w.addr,
		StateInit: stateInit,
		Body:      msg,
	}, nil
}

func (w *Wallet) BuildTransfer(to *address.Address, amount tlb.Coins, bounce bool, comment string) (_ *Message, err error) {
	var body *cell.Cell
	if comment != "" {
		body, err = CreateCommentCell(comment)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      bounce,
			DstAddr:     to,
			Amount:      amount,
			Body:        body,
		},
	}, nil
}

// BuildTransferEncrypted is like BuildTransfer but hides the comment from
// everyone except the destination wallet owner. The destination contract
// must expose its public key.
func (w *Wallet) BuildTransferEncrypted(ctx context.Context, to *address.Address, amount tlb.Coins, bounce bool, comment string) (_ *Message, err error) {
	var body *cell.Cell
	if comment != "" {
		if w.key == nil {
			return nil, fmt.Errorf("encrypted comment requires the wallet private key")
		}

		key, err := GetPublicKey(ctx, w.api, to)
		if err != nil {
			return nil, fmt.Errorf("failed to get destination contract (wallet) public key: %w", err)
		}

		body, err = CreateEncryptedCommentCell(comment, w.WalletAddress(), w.key, key)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      bounce,
			DstAddr:     to,
			Amount:      amount,
			Body:        body,
		},
	}, nil
}

func (w *Wallet) Send(ctx context.Context, message *Message, waitConfirmation ...bool) error {
	return w.SendMany(ctx, []*Message{message}, waitConfirmation...)
}

// SendMany sends the messages as a single external message. With
// waitConfirmation it blocks until the wallet seqno moves past the
// pre-send value. Any transfer from the same wallet moves the seqno,
// so the confirmation is only reliable with a single sender per wallet.
func (w *Wallet) SendMany(ctx context.Context, messages []*Message, waitConfirmation ...bool) error {
	_, err := w.sendMany(ctx, messages, waitConfirmation...)
	return err
}

// SendManyGetInMsgHash returns hash of the external incoming message payload.
func (w *Wallet) SendManyGetInMsgHash(ctx context.Context, messages []*Message, waitConfirmation ...bool) ([]byte, error) {
	return w.sendMany(ctx, messages, waitConfirmation...)
}

func (w *Wallet) sendMany(ctx context.Context, messages []*Message, waitConfirmation ...bool) ([]byte, error) {
	wait := len(waitConfirmation) > 0 && waitConfirmation[0]

	var seqnoBefore uint32
	if wait {
		var err error
		seqnoBefore, err = w.GetSeqno(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read seqno before send: %w", err)
		}
	}

	ext, err := w.BuildExternalMessageForMany(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err = w.api.SendExternalMessage(ctx, ext); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if wait {
		if err = w.waitSeqnoChange(ctx, seqnoBefore); err != nil {
			return nil, err
		}
	}

	return ext.Body.Hash(), nil
}

// waitSeqnoChange polls the contract until its seqno moves past the value
// observed before the send. Seqno movement is the only signal available,
// a message sent concurrently from the same wallet satisfies the wait too.
// Bounded by ctx.
func (w *Wallet) waitSeqnoChange(ctx context.Context, seqnoBefore uint32) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(seqnoPollInterval):
		}

		seqno, err := w.GetSeqno(ctx)
		if err != nil {
			continue
		}

		if seqno > seqnoBefore {
			return nil
		}
	}
}

// TransferNoBounce - can be used to transfer TON to a not yet initialized contract/wallet
func (w *Wallet) TransferNoBounce(ctx context.Context, to *address.Address, amount tlb.Coins, comment string, waitConfirmation ...bool) error {
	return w.transfer(ctx, to, amount, comment, false, waitConfirmation...)
}

// Transfer - safe transfer, in case of error on smart contract side you will get coins back,
// cannot be used to transfer TON to a not yet initialized contract/wallet
func (w *Wallet) Transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string, waitConfirmation ...bool) error {
	return w.transfer(ctx, to, amount, comment, true, waitConfirmation...)
}

// TransferWithEncryptedComment - same as Transfer but encrypts the comment; errors
// if the target contract has no get_public_key method.
func (w *Wallet) TransferWithEncryptedComment(ctx context.Context, to *address.Address, amount tlb.Coins, comment string, waitConfirmation ...bool) error {
	transfer, err := w.BuildTransferEncrypted(ctx, to, amount, true, comment)
	if err != nil {
		return err
	}
	return w.Send(ctx, transfer, waitConfirmation...)
}

func (w *Wallet) transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string, bounce bool, waitConfirmation ...bool) (err error) {
	transfer, err := w.BuildTransfer(to, amount, bounce, comment)
	if err != nil {
		return err
	}
	return w.Send(ctx, transfer, waitConfirmation...)
}

// DeployContract funds and initializes a contract from the given code and
// data, returns the derived address of the new contract.
func (w *Wallet) DeployContract(ctx context.Context, amount tlb.Coins, msgBody, contractCode, contractData *cell.Cell, waitConfirmation ...bool) (*address.Address, error) {
	state := &tlb.StateInit{
		Data: contractData,
		Code: contractCode,
	}

	stateCell, err := tlb.ToCell(state)
	if err != nil {
		return nil, err
	}

	addr := address.NewAddress(0, 0, stateCell.Hash())

	if err = w.Send(ctx, &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      false,
			DstAddr:     addr,
			Amount:      amount,
			Body:        msgBody,
			StateInit:   state,
		},
	}, waitConfirmation...); err != nil {
		return nil, err
	}

	return addr, nil
}

// GetPublicKey reads the key a wallet contract was initialized with, via
// its get_public_key method.
func GetPublicKey(ctx context.Context, api Provider, addr *address.Address) (ed25519.PublicKey, error) {
	block, err := api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	res, err := api.RunGetMethod(ctx, block, addr, "get_public_key")
	if err != nil {
		return nil, fmt.Errorf("get_public_key err: %w", err)
	}

	keyNum, err := res.Int(0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return keyNum.FillBytes(make([]byte, 32)), nil
}

func CreateCommentCell(text string) (*cell.Cell, error) {
	// comment ident
	root := cell.BeginCell().MustStoreUInt(0, 32)

	if err := root.StoreStringSnake(text); err != nil {
		return nil, fmt.Errorf("failed to build comment: %w", err)
	}

	return root.EndCell(), nil
}

const EncryptedCommentOpcode = 0x2167da4b

func CreateEncryptedCommentCell(text string, senderAddr *address.Address, ourKey ed25519.PrivateKey, theirKey ed25519.PublicKey) (*cell.Cell, error) {
	// encrypted comment op code
	root := cell.BeginCell().MustStoreUInt(EncryptedCommentOpcode, 32)

	sharedKey, err := adnl.SharedKey(ourKey, theirKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared key: %w", err)
	}

	data := []byte(text)

	pfxSz := 16
	if len(data)%16 != 0 {
		pfxSz += 16 - (len(data) % 16)
	}

	pfx := make([]byte, pfxSz)
	pfx[0] = byte(len(pfx))
	if _, err = rand.Read(pfx[1:]); err != nil {
		return nil, fmt.Errorf("rand gen err: %w", err)
	}
	data = append(pfx, data...)

	h := hmac.New(sha512.New, []byte(senderAddr.String()))
	h.Write(data)
	msgKey := h.Sum(nil)[:16]

	h = hmac.New(sha512.New, sharedKey)
	h.Write(msgKey)
	x := h.Sum(nil)

	c, err := aes.NewCipher(x[:32])
	if err != nil {
		return nil, err
	}

	enc := cipher.NewCBCEncrypter(c, x[32:48])
	enc.CryptBlocks(data, data)

	xorKey := ourKey.Public().(ed25519.PublicKey)
	for i := 0; i < 32; i++ {
		xorKey[i] ^= theirKey[i]
	}

	root.MustStoreSlice(xorKey, 256)
	root.MustStoreSlice(msgKey, 128)

	if err := root.StoreBinarySnake(data); err != nil {
		return nil, fmt.Errorf("failed to build comment: %w", err)
	}

	return root.EndCell(), nil
}

func DecryptCommentCell(commentCell *cell.Cell, sender *address.Address, ourKey ed25519.PrivateKey, theirKey ed25519.PublicKey) ([]byte, error) {
	slc := commentCell.BeginParse()
	op, err := slc.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("failed to load op code: %w", err)
	}

	if op != EncryptedCommentOpcode {
		return nil, fmt.Errorf("opcode not match encrypted comment")
	}

	xorKey, err := slc.LoadSlice(256)
	if err != nil {
		return nil, fmt.Errorf("failed to load xor key: %w", err)
	}
	for i := 0; i < 32; i++ {
		xorKey[i] ^= theirKey[i]
	}

	if !bytes.Equal(xorKey, ourKey.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("message was encrypted not for the given keys")
	}

	msgKey, err := slc.LoadSlice(128)
	if err != nil {
		return nil, fmt.Errorf("failed to load message key: %w", err)
	}

	sharedKey, err := adnl.SharedKey(ourKey, theirKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared key: %w", err)
	}

	h := hmac.New(sha512.New, sharedKey)
	h.Write(msgKey)
	x := h.Sum(nil)

	data, err := slc.LoadBinarySnake()
	if err != nil {
		return nil, fmt.Errorf("failed to load snake encrypted data: %w", err)
	}

	if len(data) < 32 || len(data)%16 != 0 {
		return nil, fmt.Errorf("invalid data")
	}

	c, err := aes.NewCipher(x[:32])
	if err != nil {
		return nil, err
	}
	enc := cipher.NewCBCDecrypter(c, x[32:48])
	enc.CryptBlocks(data, data)

	if data[0] > 31 {
		return nil, fmt.Errorf("invalid prefix size %d", data[0])
	}

	h = hmac.New(sha512.New, []byte(sender.String()))
	h.Write(data)
	if !bytes.Equal(msgKey, h.Sum(nil)[:16]) {
		return nil, fmt.Errorf("incorrect msg key")
	}

	return data[data[0]:], nil
}

func SimpleMessage(to *address.Address, amount tlb.Coins, payload *cell.Cell) *Message {
	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      true,
			DstAddr:     to,
			Amount:      amount,
			Body:        payload,
		},
	}
}

// SimpleMessageAutoBounce - will determine bounce flag from address
func SimpleMessageAutoBounce(to *address.Address, amount tlb.Coins, payload *cell.Cell) *Message {
	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      to.IsBounceable(),
			DstAddr:     to,
			Amount:      amount,
			Body:        payload,
		},
	}
}
