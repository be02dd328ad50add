package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Provider
	case "node.rpcurl", "rpcurl":
		cfg.Node.RPCURL = value
	case "node.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Node.Timeout = n

	// Vault
	case "vault.memory":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Memory = n
	case "vault.iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Iterations = n
	case "vault.parallelism":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.Parallelism = n

	// Oracle
	case "oracle.enabled", "oracle":
		cfg.Oracle.Enabled = parseBool(value)
	case "oracle.pair":
		cfg.Oracle.Pair = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Etherpouch Wallet Configuration

# Network: mainnet or sepolia
network = ` + string(network) + `

# Data directory (default: ~/.etherpouch)
# datadir = ~/.etherpouch

# ============================================================================
# Provider
# ============================================================================

# JSON-RPC endpoint. Transaction history requires a provider that serves
# the asset-transfer indexing API (Alchemy or compatible).
# node.rpcurl = https://eth-mainnet.g.alchemy.com/v2/<key>

# Per-call deadline in seconds
# node.timeout = 15

# ============================================================================
# Key Vault
# ============================================================================

# Argon2id parameters for the encrypted key vault. Raising them slows
# both attackers and every unlock.
# vault.memory = 65536
# vault.iterations = 3
# vault.parallelism = 4

# ============================================================================
# Fiat Prices
# ============================================================================

oracle.enabled = ` + strconv.FormatBool(network == Mainnet) + `
# oracle.pair = ETH-USD

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
