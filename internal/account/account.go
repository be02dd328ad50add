// Package account owns the ordered account list and the active-account
// pointer. All mutations go through the Store, which persists state through
// a storage.DB collaborator with key material encrypted at rest.
package account

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etherpouch/etherpouch/internal/keys"
)

// Account is a single wallet account. The secret is held in memory only and
// is never serialized in plaintext.
type Account struct {
	Name      string
	Address   common.Address
	Mnemonic  string // empty for accounts imported from a raw private key
	Imported  bool
	CreatedAt time.Time

	secret *keys.Secret
}

// Secret returns the account's private key material.
func (a Account) Secret() *keys.Secret {
	return a.secret
}

// storedAccount is the persisted (pre-encryption) form of an Account.
// The whole account list is serialized and encrypted as one vault blob, so
// these fields never reach disk in the clear.
type storedAccount struct {
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	PrivateKey string    `json:"privateKey"`
	Mnemonic   string    `json:"mnemonic,omitempty"`
	Imported   bool      `json:"imported"`
	CreatedAt  time.Time `json:"createdAt"`
}

// storedState is the vault payload: the ordered account list plus the
// active pointer.
type storedState struct {
	Accounts    []storedAccount `json:"accounts"`
	ActiveIndex int             `json:"activeIndex"`
}
