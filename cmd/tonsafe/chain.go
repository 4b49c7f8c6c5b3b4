package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/tonsafe/tonsafe/wallet"
)

var balanceCmd = &cli.Command{
	Name:      "balance",
	Usage:     "show the on-chain balance of a stored wallet",
	ArgsUsage: "<name>",
	Action: func(cctx *cli.Context) error {
		name := cctx.Args().First()
		if name == "" {
			return errors.New("wallet name is required")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		info, err := store.GetInfo(name)
		if err != nil {
			return err
		}

		ctx, cancel := opCtx(cctx)
		defer cancel()

		api, err := buildProvider(ctx)
		if err != nil {
			return err
		}

		w, err := readOnlyWallet(api, info)
		if err != nil {
			return err
		}

		balance, err := w.GetBalance(ctx)
		if err != nil {
			return err
		}

		fmt.Println(balance.String(), "TON")
		return nil
	},
}

var seqnoCmd = &cli.Command{
	Name:      "seqno",
	Usage:     "show the current sequence number of a stored wallet",
	ArgsUsage: "<name>",
	Action: func(cctx *cli.Context) error {
		name := cctx.Args().First()
		if name == "" {
			return errors.New("wallet name is required")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		info, err := store.GetInfo(name)
		if err != nil {
			return err
		}

		ctx, cancel := opCtx(cctx)
		defer cancel()

		api, err := buildProvider(ctx)
		if err != nil {
			return err
		}

		w, err := readOnlyWallet(api, info)
		if err != nil {
			return err
		}

		seqno, err := w.GetSeqno(ctx)
		if err != nil {
			return err
		}

		fmt.Println(seqno)
		return nil
	},
}

var transferCmd = &cli.Command{
	Name:      "transfer",
	Usage:     "send TON from a stored wallet",
	ArgsUsage: "<name> <to> <amount>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "comment",
			Usage: "text comment attached to the transfer",
		},
		&cli.BoolFlag{
			Name:  "encrypt-comment",
			Usage: "encrypt the comment so only the receiver can read it",
		},
		&cli.BoolFlag{
			Name:  "no-bounce",
			Usage: "force a non-bounceable transfer",
		},
		&cli.BoolFlag{
			Name:  "wait",
			Value: true,
			Usage: "wait until the message is accepted on chain",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() < 3 {
			return errors.New("usage: transfer <name> <to> <amount>")
		}
		name := cctx.Args().Get(0)

		to, err := address.ParseAddr(cctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("invalid destination address: %w", err)
		}

		amount, err := tlb.FromTON(cctx.Args().Get(2))
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		ctx, cancel := opCtx(cctx)
		defer cancel()

		api, err := buildProvider(ctx)
		if err != nil {
			return err
		}

		w, err := signingWallet(api, store, name)
		if err != nil {
			return err
		}

		// the address form carries the intent, UQ.. addresses do not bounce
		bounce := to.IsBounceable()
		if cctx.Bool("no-bounce") {
			bounce = false
		}

		var msg *wallet.Message
		if cctx.Bool("encrypt-comment") {
			msg, err = w.BuildTransferEncrypted(ctx, to, amount, bounce, cctx.String("comment"))
		} else {
			msg, err = w.BuildTransfer(to, amount, bounce, cctx.String("comment"))
		}
		if err != nil {
			return err
		}

		logger.Info().
			Str("from", w.WalletAddress().String()).
			Str("to", to.String()).
			Str("amount", amount.String()).
			Msg("sending transfer")

		hash, err := w.SendManyGetInMsgHash(ctx, []*wallet.Message{msg}, cctx.Bool("wait"))
		if err != nil {
			return err
		}

		fmt.Println("Message hash:", base64.StdEncoding.EncodeToString(hash))
		return nil
	},
}

var deployCmd = &cli.Command{
	Name:      "deploy",
	Usage:     "deploy a contract funded by a stored wallet",
	ArgsUsage: "<name> <code-boc-file> <data-boc-file>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "amount",
			Value: "0.05",
			Usage: "TON attached to the deploy message",
		},
		&cli.StringFlag{
			Name:  "body-boc-file",
			Usage: "optional init message body",
		},
		&cli.BoolFlag{
			Name:  "wait",
			Value: true,
			Usage: "wait until the message is accepted on chain",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() < 3 {
			return errors.New("usage: deploy <name> <code-boc-file> <data-boc-file>")
		}
		name := cctx.Args().Get(0)

		code, err := readBocFile(cctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("failed to read code: %w", err)
		}

		data, err := readBocFile(cctx.Args().Get(2))
		if err != nil {
			return fmt.Errorf("failed to read data: %w", err)
		}

		body := cell.BeginCell().EndCell()
		if f := cctx.String("body-boc-file"); f != "" {
			if body, err = readBocFile(f); err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
		}

		amount, err := tlb.FromTON(cctx.String("amount"))
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		ctx, cancel := opCtx(cctx)
		defer cancel()

		api, err := buildProvider(ctx)
		if err != nil {
			return err
		}

		w, err := signingWallet(api, store, name)
		if err != nil {
			return err
		}

		addr, err := w.DeployContract(ctx, amount, body, code, data, cctx.Bool("wait"))
		if err != nil {
			return err
		}

		fmt.Println("Contract address:", addr.String())
		return nil
	},
}

func readBocFile(path string) (*cell.Cell, error) {
	boc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cell.FromBOC(boc)
}
