package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tonsafe/tonsafe/internal/config"
)

func main() {
	local := []*cli.Command{
		generateCmd,
		importCmd,
		listCmd,
		addressCmd,
		balanceCmd,
		seqnoCmd,
		transferCmd,
		deployCmd,
	}

	app := &cli.App{
		Name:                 "tonsafe",
		Usage:                "TON wallet vault, derives addresses and sends transfers",
		Version:              "0.1.0",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Usage: "network to work on: mainnet or testnet",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "contract provider: liteserver or toncenter",
			},
			&cli.StringFlag{
				Name:  "keystore-dir",
				Usage: "directory with encrypted wallet files",
			},
			&cli.StringFlag{
				Name:  "toncenter-url",
				Usage: "toncenter base URL",
			},
			&cli.StringFlag{
				Name:  "toncenter-api-key",
				Usage: "toncenter API key",
			},
			&cli.StringFlag{
				Name:  "liteserver-config-url",
				Usage: "lite server global config URL",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "network operation timeout",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
			},
		},
		Before: func(cctx *cli.Context) error {
			if err := config.Init(); err != nil {
				return err
			}
			if err := applyFlags(cctx); err != nil {
				return err
			}
			setLogLevel(config.Get().LogLevel)
			return nil
		},
		Commands: local,
	}

	app.Setup()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides env configuration with explicitly passed flags.
func applyFlags(cctx *cli.Context) error {
	cfg := config.Get()

	if cctx.IsSet("network") {
		cfg.Network = cctx.String("network")
	}
	if cctx.IsSet("provider") {
		cfg.Provider = cctx.String("provider")
	}
	if cctx.IsSet("keystore-dir") {
		cfg.KeystoreDir = cctx.String("keystore-dir")
	}
	if cctx.IsSet("toncenter-url") {
		cfg.ToncenterURL = cctx.String("toncenter-url")
	}
	if cctx.IsSet("toncenter-api-key") {
		cfg.ToncenterAPIKey = cctx.String("toncenter-api-key")
	}
	if cctx.IsSet("liteserver-config-url") {
		cfg.LiteserverConfigURL = cctx.String("liteserver-config-url")
	}
	if cctx.IsSet("timeout") {
		cfg.Timeout = cctx.Duration("timeout")
	}
	if cctx.IsSet("log-level") {
		cfg.LogLevel = cctx.String("log-level")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return cfg.Validate()
}
