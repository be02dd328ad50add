package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SecretSize is the length of a raw private key in bytes.
const SecretSize = 32

// Secret is an opaque private-key holder. It can be zeroed on release so
// key material does not linger in memory after an account is discarded.
type Secret struct {
	key *secp256k1.PrivateKey
}

// SecretFromBytes wraps a 32-byte scalar, rejecting values outside the
// valid secp256k1 range.
func SecretFromBytes(b []byte) (*Secret, error) {
	if len(b) != SecretSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(b), SecretSize)
	}
	// ToECDSA enforces 0 < scalar < curve order.
	if _, err := ethcrypto.ToECDSA(b); err != nil {
		return nil, fmt.Errorf("%w: not a valid curve scalar", ErrInvalidKey)
	}
	return &Secret{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// SecretFromHex parses a hex-encoded private key, with or without the
// 0x prefix.
func SecretFromHex(s string) (*Secret, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed hex", ErrInvalidKey)
	}
	return SecretFromBytes(b)
}

// Bytes returns the raw 32-byte scalar.
func (s *Secret) Bytes() []byte {
	return s.key.Serialize()
}

// Hex returns the 0x-prefixed hex encoding of the key.
func (s *Secret) Hex() string {
	return "0x" + hex.EncodeToString(s.key.Serialize())
}

// ECDSA returns the key as a stdlib ecdsa.PrivateKey for signing.
func (s *Secret) ECDSA() (*ecdsa.PrivateKey, error) {
	priv, err := ethcrypto.ToECDSA(s.key.Serialize())
	if err != nil {
		return nil, fmt.Errorf("materialize signing key: %w", err)
	}
	return priv, nil
}

// Address returns the Ethereum address derived from the key's public point
// (last 20 bytes of Keccak-256 of the uncompressed public key).
func (s *Secret) Address() common.Address {
	return ethcrypto.PubkeyToAddress(*s.key.PubKey().ToECDSA())
}

// Zero securely zeroes the private key memory. The Secret must not be used
// afterwards.
func (s *Secret) Zero() {
	s.key.Zero()
}
