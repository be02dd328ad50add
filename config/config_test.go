package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etherpouch.conf")
	content := `# comment
network = sepolia
node.rpcurl = "https://example.org/v2/key"
node.timeout = 30
vault.iterations = 5
oracle.enabled = false
log.level = debug
unknown.key = ignored
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.Network != Sepolia {
		t.Errorf("Network = %s, want sepolia", cfg.Network)
	}
	if cfg.Node.RPCURL != "https://example.org/v2/key" {
		t.Errorf("RPCURL = %q (quotes not stripped?)", cfg.Node.RPCURL)
	}
	if cfg.Node.Timeout != 30 {
		t.Errorf("Timeout = %d, want 30", cfg.Node.Timeout)
	}
	if cfg.Vault.Iterations != 5 {
		t.Errorf("Iterations = %d, want 5", cfg.Vault.Iterations)
	}
	if cfg.Oracle.Enabled {
		t.Error("Oracle.Enabled = true, want false")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty for missing file", values)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("no equals sign\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"sepolia defaults", func(c *Config) { *c = *DefaultSepolia() }, false},
		{"bad network", func(c *Config) { c.Network = "goerli" }, true},
		{"zero timeout", func(c *Config) { c.Node.Timeout = 0 }, true},
		{"bad rpc url", func(c *Config) { c.Node.RPCURL = "not a url" }, true},
		{"ws url ok", func(c *Config) { c.Node.RPCURL = "wss://example.org" }, false},
		{"tiny vault memory", func(c *Config) { c.Vault.Memory = 16 }, true},
		{"zero iterations", func(c *Config) { c.Vault.Iterations = 0 }, true},
		{"bad oracle pair", func(c *Config) { c.Oracle.Pair = "ETHUSD" }, true},
		{"oracle pair ignored when disabled", func(c *Config) {
			c.Oracle.Enabled = false
			c.Oracle.Pair = ""
		}, false},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChainID(t *testing.T) {
	if Mainnet.ChainID().Int64() != 1 {
		t.Errorf("mainnet chain ID = %d, want 1", Mainnet.ChainID().Int64())
	}
	if Sepolia.ChainID().Int64() != 11155111 {
		t.Errorf("sepolia chain ID = %d, want 11155111", Sepolia.ChainID().Int64())
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etherpouch.conf")
	if err := WriteDefaultConfig(path, Sepolia); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Network != Sepolia {
		t.Errorf("Network = %s, want sepolia", cfg.Network)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("written defaults do not validate: %v", err)
	}
}

func TestParseFlags_SepoliaShorthand(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	// The bare flag must work without an =value argument.
	os.Args = []string{"pouch", "--sepolia", "list"}
	f := ParseFlags()
	if f.Network != "sepolia" {
		t.Errorf("Network = %q, want sepolia", f.Network)
	}
	if len(f.Args) != 1 || f.Args[0] != "list" {
		t.Errorf("Args = %v, want [list]", f.Args)
	}

	cfg := DefaultMainnet()
	ApplyFlags(cfg, f)
	if cfg.Network != Sepolia {
		t.Errorf("applied Network = %s, want sepolia", cfg.Network)
	}
}
