package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"
	"golang.org/x/term"

	"github.com/tonsafe/tonsafe/internal/config"
	"github.com/tonsafe/tonsafe/keystore"
	"github.com/tonsafe/tonsafe/toncenter"
	"github.com/tonsafe/tonsafe/wallet"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

var logger = zerolog.New(logout).
	With().Timestamp().Logger().
	Level(zerolog.InfoLevel)

func setLogLevel(s string) {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		logger.Warn().Str("level", s).Msg("unknown log level, keeping info")
		return
	}
	logger = logger.Level(lvl)
}

func openStore() (*keystore.Store, error) {
	dir, err := config.Get().KeystorePath()
	if err != nil {
		return nil, err
	}
	return keystore.NewStore(dir)
}

// buildProvider connects to the configured contract provider.
func buildProvider(ctx context.Context) (wallet.Provider, error) {
	cfg := config.Get()

	if cfg.Provider == config.ProviderToncenter {
		opts := []toncenter.Option{toncenter.WithTimeout(cfg.Timeout)}
		if cfg.ToncenterAPIKey != "" {
			opts = append(opts, toncenter.WithAPIKey(cfg.ToncenterAPIKey))
		}

		logger.Debug().Str("url", cfg.ToncenterBase()).Msg("using toncenter provider")
		return toncenter.New(cfg.ToncenterBase(), opts...), nil
	}

	client := liteclient.NewConnectionPool()

	logger.Debug().Str("config", cfg.GlobalConfigURL()).Msg("connecting to lite servers")
	if err := client.AddConnectionsFromConfigUrl(ctx, cfg.GlobalConfigURL()); err != nil {
		return nil, fmt.Errorf("failed to connect to lite servers: %w", err)
	}

	return ton.NewAPIClient(client), nil
}

func opCtx(cctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cctx.Context, config.Get().Timeout)
}

// promptPassword reads a password without echo. With confirm set it asks
// twice and verifies both entries match.
func promptPassword(prompt string, confirm bool) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal, run interactively to enter the password")
	}

	fmt.Fprint(os.Stderr, prompt+": ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(pass) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Repeat password: ")
		again, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		if !bytes.Equal(pass, again) {
			return nil, errors.New("passwords do not match")
		}
		clear(again)
	}

	return pass, nil
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt+": ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readOnlyWallet rebuilds the wallet from the plaintext keystore metadata,
// no password needed.
func readOnlyWallet(api wallet.Provider, info *keystore.Info) (*wallet.Wallet, error) {
	return wallet.FromPublicKey(api, info.PublicKey, wallet.Version(info.Version),
		wallet.WithSubwalletID(info.SubwalletID))
}

// signingWallet decrypts the key and rebuilds a wallet able to send.
func signingWallet(api wallet.Provider, store *keystore.Store, name string) (*wallet.Wallet, error) {
	info, err := store.GetInfo(name)
	if err != nil {
		return nil, err
	}

	pass, err := promptPassword("Enter wallet password", false)
	if err != nil {
		return nil, err
	}
	defer clear(pass)

	key, err := store.Load(name, pass)
	if err != nil {
		return nil, err
	}

	w, err := wallet.FromPrivateKey(api, key.PrivateKey, wallet.Version(info.Version),
		wallet.WithSubwalletID(info.SubwalletID))
	if err != nil {
		return nil, err
	}

	if w.WalletAddress().String() != info.Address {
		return nil, fmt.Errorf("derived address %s does not match stored %s", w.WalletAddress(), info.Address)
	}
	return w, nil
}
