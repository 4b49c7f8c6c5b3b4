package main

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"

	"github.com/tonsafe/tonsafe/internal/config"
	"github.com/tonsafe/tonsafe/keystore"
	"github.com/tonsafe/tonsafe/wallet"
)

var generateCmd = &cli.Command{
	Name:      "generate",
	Usage:     "create a new wallet with a fresh 24 word seed",
	ArgsUsage: "<name>",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "subwallet",
			Value: uint(wallet.DefaultSubwallet),
			Usage: "wallet instance id, different ids derive different addresses from the same key",
		},
		&cli.BoolFlag{
			Name:  "seed-password",
			Usage: "protect the seed with an additional password, required to re-import it",
		},
	},
	Action: func(cctx *cli.Context) error {
		name := cctx.Args().First()
		if name == "" {
			return errors.New("wallet name is required")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if store.Exists(name) {
			return keystore.ErrAlreadyExists
		}

		var seedPass []byte
		if cctx.Bool("seed-password") {
			if seedPass, err = promptPassword("Create seed password", true); err != nil {
				return err
			}
			defer clear(seedPass)
		}

		seed := wallet.NewSeedWithPassword(string(seedPass))
		key, err := wallet.SeedKey(seed, string(seedPass))
		if err != nil {
			return err
		}

		subwallet := uint32(cctx.Uint("subwallet"))
		w, err := wallet.FromPrivateKey(nil, key, wallet.V3, wallet.WithSubwalletID(subwallet))
		if err != nil {
			return err
		}

		pass, err := promptPassword("Create wallet password", true)
		if err != nil {
			return err
		}
		defer clear(pass)

		err = store.Save(name, &keystore.Key{PrivateKey: key, Seed: seed}, keystore.Info{
			Network:     config.Get().Network,
			Address:     w.WalletAddress().String(),
			PublicKey:   w.PublicKey(),
			Version:     int(w.Version()),
			SubwalletID: subwallet,
		}, pass)
		if err != nil {
			return err
		}

		logger.Info().Str("name", name).Msg("wallet created")

		fmt.Println("Address:", w.WalletAddress())
		fmt.Println()
		fmt.Println("Seed words, write them down and keep them offline:")
		fmt.Println(strings.Join(seed, " "))
		return nil
	},
}

var importCmd = &cli.Command{
	Name:      "import",
	Usage:     "import a wallet from 24 seed words",
	ArgsUsage: "<name>",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "subwallet",
			Value: uint(wallet.DefaultSubwallet),
			Usage: "wallet instance id",
		},
		&cli.BoolFlag{
			Name:  "seed-password",
			Usage: "the seed is protected with an additional password",
		},
	},
	Action: func(cctx *cli.Context) error {
		name := cctx.Args().First()
		if name == "" {
			return errors.New("wallet name is required")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if store.Exists(name) {
			return keystore.ErrAlreadyExists
		}

		line, err := promptLine("Enter seed words")
		if err != nil {
			return err
		}
		seed := strings.Fields(line)

		var seedPass []byte
		if cctx.Bool("seed-password") {
			if seedPass, err = promptPassword("Enter seed password", false); err != nil {
				return err
			}
			defer clear(seedPass)
		}

		key, err := wallet.SeedKey(seed, string(seedPass))
		if err != nil {
			return err
		}

		subwallet := uint32(cctx.Uint("subwallet"))
		w, err := wallet.FromPrivateKey(nil, key, wallet.V3, wallet.WithSubwalletID(subwallet))
		if err != nil {
			return err
		}

		pass, err := promptPassword("Create wallet password", true)
		if err != nil {
			return err
		}
		defer clear(pass)

		err = store.Save(name, &keystore.Key{PrivateKey: key, Seed: seed}, keystore.Info{
			Network:     config.Get().Network,
			Address:     w.WalletAddress().String(),
			PublicKey:   w.PublicKey(),
			Version:     int(w.Version()),
			SubwalletID: subwallet,
		}, pass)
		if err != nil {
			return err
		}

		logger.Info().Str("name", name).Msg("wallet imported")

		fmt.Println("Address:", w.WalletAddress())
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list stored wallets",
	Action: func(cctx *cli.Context) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		wallets, err := store.List()
		if err != nil {
			return err
		}

		if len(wallets) == 0 {
			fmt.Println("no wallets yet, create one with 'tonsafe generate <name>'")
			return nil
		}

		for _, info := range wallets {
			fmt.Printf("%-20s %-50s %-8s %s\n", info.Name, info.Address, info.Network, info.CreatedAt)
		}
		return nil
	},
}

var addressCmd = &cli.Command{
	Name:      "address",
	Usage:     "show the address of a stored wallet",
	ArgsUsage: "<name>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "qr",
			Usage: "print the address as a QR code",
		},
	},
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

		fmt.Println(info.Address)

		if cctx.Bool("qr") {
			qr, err := qrcode.New(info.Address, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("failed to create QR code: %w", err)
			}
			fmt.Print(qr.ToSmallString(false))
		}
		return nil
	},
}
