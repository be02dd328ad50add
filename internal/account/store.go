package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etherpouch/etherpouch/internal/keys"
	"github.com/etherpouch/etherpouch/internal/log"
	"github.com/etherpouch/etherpouch/internal/storage"
)

// vaultKey is the fixed storage key for the encrypted account list.
var vaultKey = []byte("accounts")

// Errors returned by Store operations.
var (
	// ErrNoAccounts means the store is uninitialized (no accounts yet).
	ErrNoAccounts = errors.New("account store is empty")

	// ErrIndexOutOfRange means the account index does not exist.
	ErrIndexOutOfRange = errors.New("account index out of range")

	// ErrAddressMismatch means a persisted account's address does not match
	// its private key. The store refuses to load such records.
	ErrAddressMismatch = errors.New("account address does not match private key")
)

// Purger is notified when an account is deleted so dependent state (token
// registries, cached history) can be removed.
type Purger interface {
	Purge(addr common.Address) error
}

// Store owns the ordered account list and the active-account pointer.
// Mutations are serialized through a mutex; persistence failures leave the
// in-memory state unchanged.
type Store struct {
	mu         sync.Mutex
	db         storage.DB
	passphrase []byte
	params     VaultParams

	accounts []Account
	active   int // -1 when the store is uninitialized
	epoch    uint64

	purgers []Purger
}

// Open loads the account store from db, decrypting the vault with the given
// passphrase. A missing vault yields an empty, uninitialized store.
func Open(db storage.DB, passphrase []byte) (*Store, error) {
	return OpenWithParams(db, passphrase, DefaultVaultParams())
}

// OpenWithParams is Open with explicit Argon2id parameters.
func OpenWithParams(db storage.DB, passphrase []byte, params VaultParams) (*Store, error) {
	s := &Store{
		db:         db,
		passphrase: passphrase,
		params:     params,
		active:     -1,
	}

	blob, err := db.Get(vaultKey)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	plain, err := openVault(blob, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlock accounts: %w", err)
	}

	var state storedState
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}

	for _, rec := range state.Accounts {
		secret, err := keys.SecretFromHex(rec.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", rec.Name, err)
		}
		addr := common.HexToAddress(rec.Address)
		if secret.Address() != addr {
			return nil, fmt.Errorf("account %q: %w", rec.Name, ErrAddressMismatch)
		}
		s.accounts = append(s.accounts, Account{
			Name:      rec.Name,
			Address:   addr,
			Mnemonic:  rec.Mnemonic,
			Imported:  rec.Imported,
			CreatedAt: rec.CreatedAt,
			secret:    secret,
		})
	}

	if len(s.accounts) > 0 {
		s.active = state.ActiveIndex
		if s.active < 0 || s.active >= len(s.accounts) {
			s.active = 0
		}
	}

	log.Wallet.Debug().Int("accounts", len(s.accounts)).Int("active", s.active).Msg("store opened")
	return s, nil
}

// AddPurger registers a purger to run when an account is deleted.
func (s *Store) AddPurger(p Purger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgers = append(s.purgers, p)
}

// Create generates a fresh account, appends it, and makes it active.
// The returned account carries the mnemonic for user backup.
func (s *Store) Create(name string) (Account, error) {
	mnemonic, mat, err := keys.Generate()
	if err != nil {
		return Account{}, err
	}
	return s.append(Account{
		Name:      strings.TrimSpace(name),
		Address:   mat.Address,
		Mnemonic:  mnemonic,
		Imported:  false,
		CreatedAt: time.Now().UTC(),
		secret:    mat.Secret,
	})
}

// ImportMnemonic derives an account from a BIP-39 phrase, appends it, and
// makes it active. The store is unchanged if derivation or persistence fails.
func (s *Store) ImportMnemonic(name, phrase string) (Account, error) {
	mat, err := keys.FromMnemonic(phrase)
	if err != nil {
		return Account{}, err
	}
	return s.append(Account{
		Name:      strings.TrimSpace(name),
		Address:   mat.Address,
		Mnemonic:  strings.TrimSpace(phrase),
		Imported:  true,
		CreatedAt: time.Now().UTC(),
		secret:    mat.Secret,
	})
}

// ImportPrivateKey derives an account from a raw hex private key, appends
// it, and makes it active.
func (s *Store) ImportPrivateKey(name, hexKey string) (Account, error) {
	mat, err := keys.FromPrivateKey(hexKey)
	if err != nil {
		return Account{}, err
	}
	return s.append(Account{
		Name:      strings.TrimSpace(name),
		Address:   mat.Address,
		Imported:  true,
		CreatedAt: time.Now().UTC(),
		secret:    mat.Secret,
	})
}

// append adds acct, sets it active, and persists. On persistence failure the
// in-memory state is rolled back so the operation is atomic.
func (s *Store) append(acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = append(s.accounts, acct)
	prevActive := s.active
	s.active = len(s.accounts) - 1

	if err := s.persist(); err != nil {
		s.accounts = s.accounts[:len(s.accounts)-1]
		s.active = prevActive
		acct.secret.Zero()
		return Account{}, err
	}

	s.epoch++
	log.Wallet.Info().Str("address", acct.Address.Hex()).Bool("imported", acct.Imported).Msg("account added")
	return acct, nil
}

// SwitchActive points the store at another account. No key re-derivation
// happens; a signer is materialized on demand.
func (s *Store) SwitchActive(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.accounts) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index == s.active {
		return nil
	}

	prev := s.active
	s.active = index
	if err := s.persist(); err != nil {
		s.active = prev
		return err
	}
	s.epoch++
	return nil
}

// Delete removes the account at index. Re-indexing rule: deleting the active
// account moves the pointer to 0 (or uninitialized when the list empties);
// deleting an earlier account shifts the pointer down by one; deleting a
// later account leaves the pointer alone, so the user's current account never
// changes silently.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.accounts) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	removed := s.accounts[index]
	prevAccounts := s.accounts
	prevActive := s.active

	next := make([]Account, 0, len(s.accounts)-1)
	next = append(next, s.accounts[:index]...)
	next = append(next, s.accounts[index+1:]...)
	s.accounts = next

	switch {
	case len(s.accounts) == 0:
		s.active = -1
	case index == prevActive:
		s.active = 0
	case index < prevActive:
		s.active = prevActive - 1
	}

	if err := s.persist(); err != nil {
		s.accounts = prevAccounts
		s.active = prevActive
		return err
	}

	s.epoch++
	removed.secret.Zero()

	for _, p := range s.purgers {
		if err := p.Purge(removed.Address); err != nil {
			log.Wallet.Warn().Err(err).Str("address", removed.Address.Hex()).Msg("purge after delete failed")
		}
	}

	log.Wallet.Info().Str("address", removed.Address.Hex()).Msg("account deleted")
	return nil
}

// List returns a copy of the account list in insertion order.
func (s *Store) List() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Active returns the active account and its index.
func (s *Store) Active() (Account, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return Account{}, -1, ErrNoAccounts
	}
	return s.accounts[s.active], s.active, nil
}

// CurrentSigner returns the active account's key material for signing.
func (s *Store) CurrentSigner() (*keys.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return nil, ErrNoAccounts
	}
	return s.accounts[s.active].secret, nil
}

// Epoch returns the current active-account epoch. It increases on every
// mutation that can change whose data is on screen; async fetch results
// tagged with an older epoch must be discarded on arrival.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// persist writes the encrypted vault blob. Callers hold the mutex.
func (s *Store) persist() error {
	state := storedState{ActiveIndex: s.active}
	for _, a := range s.accounts {
		state.Accounts = append(state.Accounts, storedAccount{
			Name:       a.Name,
			Address:    a.Address.Hex(),
			PrivateKey: a.secret.Hex(),
			Mnemonic:   a.Mnemonic,
			Imported:   a.Imported,
			CreatedAt:  a.CreatedAt,
		})
	}

	plain, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	blob, err := sealVault(plain, s.passphrase, s.params)
	// Zero the plaintext serialization regardless of outcome.
	for i := range plain {
		plain[i] = 0
	}
	if err != nil {
		return fmt.Errorf("seal accounts: %w", err)
	}

	if err := s.db.Put(vaultKey, blob); err != nil {
		return fmt.Errorf("persist accounts: %w", err)
	}
	return nil
}
