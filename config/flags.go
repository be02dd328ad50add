package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	Sepolia bool
	DataDir string
	Config  string

	// Provider
	RPCURL  string
	Timeout int

	// Oracle
	Oracle bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (the wallet subcommand and its arguments)
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetOracle  bool
	SetLogJSON bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("pouch", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network (mainnet or sepolia)")
	fs.BoolVar(&f.Sepolia, "sepolia", false, "Use Sepolia (shorthand for --network=sepolia)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Provider
	fs.StringVar(&f.RPCURL, "rpcurl", "", "JSON-RPC provider endpoint")
	fs.IntVar(&f.Timeout, "timeout", 0, "Provider call deadline in seconds")

	// Oracle
	fs.BoolVar(&f.Oracle, "oracle", true, "Show fiat values from the price feed")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Handle --sepolia shorthand
	if f.Sepolia {
		f.Network = "sepolia"
	}
	f.SetOracle = isFlagSet(fs, "oracle")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// Flags placed after the subcommand never reach the parser; fail
	// loudly instead of silently ignoring them.
	for _, arg := range f.Args[min(1, len(f.Args)):] {
		if strings.HasPrefix(arg, "--") {
			fmt.Fprintf(os.Stderr, "Error: flag %q must come before the command\n", arg)
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.RPCURL != "" {
		cfg.Node.RPCURL = f.RPCURL
	}
	if f.Timeout != 0 {
		cfg.Node.Timeout = f.Timeout
	}
	if f.SetOracle {
		cfg.Oracle.Enabled = f.Oracle
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet reports whether a flag was explicitly passed.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("pouch version 0.1.0")
		os.Exit(0)
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if strings.ToLower(flags.Network) == string(Sepolia) {
		network = Sepolia
	}

	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default
// config file if they don't already exist. Idempotent, safe to call on
// every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.WalletDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Etherpouch - non-custodial Ethereum wallet

Usage:
  pouch [flags] <command> [args]

Commands:
  create <name>              Create a new account from a fresh mnemonic
  import <name>              Import an account (mnemonic or private key)
  list                       List accounts
  switch <index>             Switch the active account
  delete <index>             Delete an account
  balance                    Show the active account's balance
  send <to> <amount>         Send ether from the active account
  token add <address>        Track an ERC-20 token
  token remove <address>     Stop tracking a token
  token list                 List tracked tokens with balances
  history                    Show the active account's transfer history
  init                       Write a default config file

Flags:
  --network <name>      Network: mainnet or sepolia (default mainnet)
  --sepolia             Use the Sepolia test network (same as --network=sepolia)
  --datadir <path>      Data directory
  --config, -c <path>   Config file path
  --rpcurl <url>        JSON-RPC provider endpoint
  --timeout <seconds>   Provider call deadline
  --oracle=<bool>       Show fiat values from the price feed
  --log-level <level>   Log level: debug, info, warn, error
  --log-file <path>     Log to file
  --log-json            Output logs as JSON
  --help, -h            Show this help
  --version, -v         Show version
`)
}
