// Package config loads application settings from TONSAFE_* environment
// variables. Flags may override individual values at the command level.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	ProviderLiteserver = "liteserver"
	ProviderToncenter  = "toncenter"
)

type Config struct {
	Network  string `envconfig:"NETWORK" default:"mainnet"`
	Provider string `envconfig:"PROVIDER" default:"liteserver"`

	// Lite server global config, resolved per network when empty.
	LiteserverConfigURL string `envconfig:"LITESERVER_CONFIG_URL"`

	// Toncenter base URL, resolved per network when empty.
	ToncenterURL    string `envconfig:"TONCENTER_URL"`
	ToncenterAPIKey string `envconfig:"TONCENTER_API_KEY"`

	KeystoreDir string `envconfig:"KEYSTORE_DIR"`

	Timeout  time.Duration `envconfig:"TIMEOUT" default:"30s"`
	LogLevel string        `envconfig:"LOG_LEVEL" default:"info"`
}

var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("tonsafe", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Network {
	case NetworkMainnet, NetworkTestnet:
	default:
		return fmt.Errorf("unknown network %q", c.Network)
	}

	switch c.Provider {
	case ProviderLiteserver, ProviderToncenter:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

func (c *Config) IsTestnet() bool {
	return c.Network == NetworkTestnet
}

// GlobalConfigURL returns the lite server global config location.
func (c *Config) GlobalConfigURL() string {
	if c.LiteserverConfigURL != "" {
		return c.LiteserverConfigURL
	}
	if c.IsTestnet() {
		return "https://ton-blockchain.github.io/testnet-global.config.json"
	}
	return "https://ton-blockchain.github.io/global.config.json"
}

// ToncenterBase returns the toncenter API base URL.
func (c *Config) ToncenterBase() string {
	if c.ToncenterURL != "" {
		return c.ToncenterURL
	}
	if c.IsTestnet() {
		return "https://testnet.toncenter.com"
	}
	return "https://toncenter.com"
}

// KeystorePath returns the keystore directory, defaulting to
// ~/.tonsafe/keystore.
func (c *Config) KeystorePath() (string, error) {
	if c.KeystoreDir != "" {
		return c.KeystoreDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tonsafe", "keystore"), nil
}
