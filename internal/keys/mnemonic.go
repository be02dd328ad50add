// Package keys implements deterministic Ethereum key derivation: mnemonic
// generation, BIP-44 HD derivation, and raw private-key import. The package
// is pure: it performs no I/O and retains no key material after returning.
package keys

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 12-word mnemonics.
const MnemonicEntropyBits = 128

// Errors surfaced by derivation. Error text never includes key material.
var (
	// ErrKeyGeneration means the entropy source failed. Fatal and
	// non-retryable within the same process state.
	ErrKeyGeneration = errors.New("key generation: entropy source failure")

	// ErrInvalidMnemonic means the phrase failed word-list or checksum
	// validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

	// ErrInvalidKey means the input is not a valid 32-byte secp256k1 scalar.
	ErrInvalidKey = errors.New("invalid private key")
)

// GenerateMnemonic creates a new 12-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
