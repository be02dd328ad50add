package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Sepolia {
		return fmt.Errorf("network must be %q or %q", Mainnet, Sepolia)
	}
	if cfg.Node.Timeout <= 0 {
		return fmt.Errorf("node.timeout must be positive")
	}
	if cfg.Node.RPCURL != "" {
		u, err := url.Parse(cfg.Node.RPCURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("node.rpcurl %q is not a valid http(s) or ws(s) URL", cfg.Node.RPCURL)
		}
	}

	if cfg.Vault.Memory < 8*1024 {
		return fmt.Errorf("vault.memory must be at least %d KiB", 8*1024)
	}
	if cfg.Vault.Iterations < 1 {
		return fmt.Errorf("vault.iterations must be at least 1")
	}
	if cfg.Vault.Parallelism < 1 || cfg.Vault.Parallelism > 255 {
		return fmt.Errorf("vault.parallelism must be in range [1, 255]")
	}

	if cfg.Oracle.Enabled {
		pair := strings.TrimSpace(cfg.Oracle.Pair)
		if pair == "" || !strings.Contains(pair, "-") {
			return fmt.Errorf("oracle.pair must look like BASE-QUOTE, got %q", cfg.Oracle.Pair)
		}
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}

	return nil
}
