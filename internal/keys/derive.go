package keys

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 derivation path constants for the default Ethereum account:
// m/44'/60'/0'/0/0
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeEther is the registered Ethereum coin type (hardened).
	CoinTypeEther = bip32.FirstHardenedChild + 60

	// ChangeExternal is the external (receiving) chain.
	ChangeExternal = 0
)

// Material is derived key material: the account address and its secret.
// Callers take ownership of the Secret and are responsible for zeroing it.
type Material struct {
	Address common.Address
	Secret  *Secret
}

// Generate produces a fresh 12-word mnemonic and the key material for its
// first account. The mnemonic must be shown to the user for backup before
// the account is persisted.
func Generate() (string, *Material, error) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return "", nil, err
	}
	mat, err := FromMnemonic(mnemonic)
	if err != nil {
		// Cannot happen for a mnemonic we just generated.
		return "", nil, fmt.Errorf("derive generated mnemonic: %w", err)
	}
	return mnemonic, mat, nil
}

// FromMnemonic deterministically derives the first account (m/44'/60'/0'/0/0)
// from a BIP-39 phrase. Repeated calls with the same phrase yield identical
// material.
func FromMnemonic(phrase string) (*Material, error) {
	phrase = strings.TrimSpace(phrase)
	if !ValidateMnemonic(phrase) {
		return nil, ErrInvalidMnemonic
	}

	// BIP-39 seed with an empty passphrase, then BIP-32 path derivation.
	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	key := master
	for _, index := range []uint32{PurposeBIP44, CoinTypeEther, bip32.FirstHardenedChild, ChangeExternal, 0} {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
	}

	secret, err := SecretFromBytes(normalizeScalar(key.Key))
	if err != nil {
		return nil, fmt.Errorf("derived key out of range: %w", err)
	}

	return &Material{Address: secret.Address(), Secret: secret}, nil
}

// FromPrivateKey validates a hex-encoded 32-byte scalar and returns its
// key material.
func FromPrivateKey(hexKey string) (*Material, error) {
	secret, err := SecretFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	return &Material{Address: secret.Address(), Secret: secret}, nil
}

// normalizeScalar strips the leading 0x00 padding that bip32 keeps on
// 33-byte private keys.
func normalizeScalar(raw []byte) []byte {
	if len(raw) == SecretSize+1 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}
