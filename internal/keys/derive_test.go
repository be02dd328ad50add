package keys

import (
	"errors"
	"strings"
	"testing"
)

// Reference vector: the widely used development mnemonic and its first
// BIP-44 account (m/44'/60'/0'/0/0, empty passphrase).
const (
	vectorMnemonic = "test test test test test test test test test test test junk"
	vectorAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	vectorPrivKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	words := strings.Fields(mnemonic)
	if len(words) != 12 {
		t.Errorf("word count = %d, want 12", len(words))
	}
	if !ValidateMnemonic(mnemonic) {
		t.Error("generated mnemonic should validate")
	}
}

func TestGenerateMnemonic_Unique(t *testing.T) {
	m1, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

func TestFromMnemonic_Vector(t *testing.T) {
	mat, err := FromMnemonic(vectorMnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	defer mat.Secret.Zero()

	if got := mat.Address.Hex(); got != vectorAddress {
		t.Errorf("address = %s, want %s", got, vectorAddress)
	}
	if got := mat.Secret.Hex(); got != vectorPrivKey {
		t.Errorf("private key mismatch")
		_ = got
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	m1, err := FromMnemonic(vectorMnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	m2, err := FromMnemonic(vectorMnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}

	if m1.Address != m2.Address {
		t.Error("repeated derivation produced different addresses")
	}
	if m1.Secret.Hex() != m2.Secret.Hex() {
		t.Error("repeated derivation produced different keys")
	}
}

func TestGenerate_RoundTrip(t *testing.T) {
	mnemonic, mat, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	rederived, err := FromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic(generated) error: %v", err)
	}

	if mat.Address != rederived.Address {
		t.Errorf("round trip address mismatch: %s vs %s", mat.Address, rederived.Address)
	}
	if mat.Secret.Hex() != rederived.Secret.Hex() {
		t.Error("round trip private key mismatch")
	}
}

func TestFromMnemonic_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
	}{
		{"empty", ""},
		{"random words", "not a valid mnemonic phrase at all"},
		{"wrong checksum", "test test test test test test test test test test test test"},
		{"single word", "abandon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMnemonic(tt.phrase)
			if !errors.Is(err, ErrInvalidMnemonic) {
				t.Errorf("error = %v, want ErrInvalidMnemonic", err)
			}
		})
	}
}

func TestFromMnemonic_TrimsWhitespace(t *testing.T) {
	mat, err := FromMnemonic("  " + vectorMnemonic + "\n")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	if got := mat.Address.Hex(); got != vectorAddress {
		t.Errorf("address = %s, want %s", got, vectorAddress)
	}
}

func TestFromPrivateKey(t *testing.T) {
	mat, err := FromPrivateKey(vectorPrivKey)
	if err != nil {
		t.Fatalf("FromPrivateKey() error: %v", err)
	}
	if got := mat.Address.Hex(); got != vectorAddress {
		t.Errorf("address = %s, want %s", got, vectorAddress)
	}

	// Without the 0x prefix.
	mat, err = FromPrivateKey(strings.TrimPrefix(vectorPrivKey, "0x"))
	if err != nil {
		t.Fatalf("FromPrivateKey(no prefix) error: %v", err)
	}
	if got := mat.Address.Hex(); got != vectorAddress {
		t.Errorf("address = %s, want %s", got, vectorAddress)
	}
}

func TestFromPrivateKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "0xzz974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
		{"too short", "0xac0974"},
		{"zero scalar", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"above curve order", "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPrivateKey(tt.key)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("error = %v, want ErrInvalidKey", err)
			}
		})
	}
}
