package config

// DefaultMainnet returns the default wallet configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Node: NodeConfig{
			// No bundled endpoint; operators supply their own provider
			// URL (Alchemy or compatible, for history indexing).
			RPCURL:  "",
			Timeout: 15,
		},
		Vault: VaultConfig{
			Memory:      64 * 1024,
			Iterations:  3,
			Parallelism: 4,
		},
		Oracle: OracleConfig{
			Enabled: true,
			Pair:    "ETH-USD",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultSepolia returns the default wallet configuration for the
// Sepolia test network.
func DefaultSepolia() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Sepolia
	// Testnet ether has no fiat price worth showing.
	cfg.Oracle.Enabled = false
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Sepolia:
		return DefaultSepolia()
	default:
		return DefaultMainnet()
	}
}
