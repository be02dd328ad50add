// Package config handles application configuration.
//
// Settings come from three layers, later layers overriding earlier ones:
// built-in defaults, the .conf file in the data directory, and
// command-line flags.
package config

import (
	"math/big"
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies which Ethereum network the wallet talks to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Sepolia NetworkType = "sepolia"
)

// ChainID returns the EIP-155 chain ID for the network.
func (n NetworkType) ChainID() *big.Int {
	switch n {
	case Sepolia:
		return big.NewInt(11155111)
	default:
		return big.NewInt(1)
	}
}

// Config holds runtime wallet configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Provider endpoint
	Node NodeConfig

	// Key vault hardening
	Vault VaultConfig

	// Fiat price display
	Oracle OracleConfig

	// Logging
	Log LogConfig
}

// NodeConfig holds JSON-RPC provider settings. The endpoint must serve
// both the standard eth namespace and the asset-transfer indexing API
// used for history.
type NodeConfig struct {
	RPCURL  string `conf:"node.rpcurl"`
	Timeout int    `conf:"node.timeout"` // per-call deadline in seconds
}

// VaultConfig holds Argon2id parameters for the encrypted key vault.
// Raising them slows both attackers and every unlock.
type VaultConfig struct {
	Memory      int `conf:"vault.memory"` // in KiB
	Iterations  int `conf:"vault.iterations"`
	Parallelism int `conf:"vault.parallelism"`
}

// OracleConfig holds fiat price feed settings.
type OracleConfig struct {
	Enabled bool   `conf:"oracle.enabled"`
	Pair    string `conf:"oracle.pair"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.etherpouch
//	macOS:   ~/Library/Application Support/Etherpouch
//	Windows: %APPDATA%\Etherpouch
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".etherpouch"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Etherpouch")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Etherpouch")
		}
		return filepath.Join(home, "AppData", "Roaming", "Etherpouch")
	default:
		return filepath.Join(home, ".etherpouch")
	}
}

// NetworkDataDir returns the network-specific data directory. Each
// network keeps its own vault and token list.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// WalletDir returns the wallet database directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.NetworkDataDir(), "wallet")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "etherpouch.conf")
}
