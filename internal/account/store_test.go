package account

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etherpouch/etherpouch/internal/keys"
	"github.com/etherpouch/etherpouch/internal/storage"
)

const (
	testMnemonic = "test test test test test test test test test test test junk"
	testAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testPrivKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

// testParams keeps Argon2id cheap so every persisted mutation stays fast.
func testParams() VaultParams {
	return VaultParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenWithParams(storage.NewMemory(), []byte("passphrase"), testParams())
	if err != nil {
		t.Fatalf("OpenWithParams: %v", err)
	}
	return s
}

func TestStore_Uninitialized(t *testing.T) {
	s := testStore(t)

	if _, _, err := s.Active(); !errors.Is(err, ErrNoAccounts) {
		t.Errorf("Active() error = %v, want ErrNoAccounts", err)
	}
	if _, err := s.CurrentSigner(); !errors.Is(err, ErrNoAccounts) {
		t.Errorf("CurrentSigner() error = %v, want ErrNoAccounts", err)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestStore_Create(t *testing.T) {
	s := testStore(t)

	acct, err := s.Create("Main")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if acct.Name != "Main" {
		t.Errorf("Name = %q, want %q", acct.Name, "Main")
	}
	if acct.Imported {
		t.Error("created account should not be marked imported")
	}
	if acct.Mnemonic == "" {
		t.Error("created account should carry its mnemonic for backup")
	}
	if acct.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	// Address must match the key.
	if got := acct.Secret().Address(); got != acct.Address {
		t.Errorf("address %s does not match key address %s", acct.Address, got)
	}

	// New account becomes active.
	_, idx, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if idx != 0 {
		t.Errorf("active index = %d, want 0", idx)
	}
}

func TestStore_ImportMnemonic(t *testing.T) {
	s := testStore(t)

	acct, err := s.ImportMnemonic("Restored", testMnemonic)
	if err != nil {
		t.Fatalf("ImportMnemonic: %v", err)
	}

	if !acct.Imported {
		t.Error("imported account should be marked imported")
	}
	if got := acct.Address.Hex(); got != testAddress {
		t.Errorf("address = %s, want %s", got, testAddress)
	}
}

func TestStore_ImportPrivateKey(t *testing.T) {
	s := testStore(t)

	acct, err := s.ImportPrivateKey("Raw", testPrivKey)
	if err != nil {
		t.Fatalf("ImportPrivateKey: %v", err)
	}
	if got := acct.Address.Hex(); got != testAddress {
		t.Errorf("address = %s, want %s", got, testAddress)
	}
	if acct.Mnemonic != "" {
		t.Error("private-key import should not carry a mnemonic")
	}
}

func TestStore_ImportInvalid_StateUnchanged(t *testing.T) {
	s := testStore(t)
	if _, err := s.Create("Main"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	epoch := s.Epoch()

	if _, err := s.ImportMnemonic("Bad", "not a mnemonic"); !errors.Is(err, keys.ErrInvalidMnemonic) {
		t.Errorf("error = %v, want ErrInvalidMnemonic", err)
	}
	if _, err := s.ImportPrivateKey("Bad", "0x1234"); !errors.Is(err, keys.ErrInvalidKey) {
		t.Errorf("error = %v, want ErrInvalidKey", err)
	}

	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d after failed imports, want 1", n)
	}
	if s.Epoch() != epoch {
		t.Error("epoch advanced on failed import")
	}
}

func TestStore_SwitchActive(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"A", "B", "C"} {
		if _, err := s.Create(name); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	if err := s.SwitchActive(1); err != nil {
		t.Fatalf("SwitchActive(1): %v", err)
	}
	acct, idx, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if idx != 1 || acct.Name != "B" {
		t.Errorf("active = (%d, %s), want (1, B)", idx, acct.Name)
	}

	if err := s.SwitchActive(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SwitchActive(3) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := s.SwitchActive(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SwitchActive(-1) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestStore_Delete_Reindexing(t *testing.T) {
	tests := []struct {
		name       string
		active     int
		delete     int
		wantActive int
		wantNames  []string
	}{
		// Deleting an earlier account keeps the same account active.
		{"earlier than active", 2, 0, 1, []string{"B", "C"}},
		// Deleting the active account falls back to index 0.
		{"active itself", 1, 1, 0, []string{"A", "C"}},
		// Deleting a later account must not switch the current account.
		{"later than active", 0, 2, 0, []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			for _, name := range []string{"A", "B", "C"} {
				if _, err := s.Create(name); err != nil {
					t.Fatalf("Create(%s): %v", name, err)
				}
			}
			if err := s.SwitchActive(tt.active); err != nil {
				t.Fatalf("SwitchActive: %v", err)
			}

			if err := s.Delete(tt.delete); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			accts := s.List()
			if len(accts) != len(tt.wantNames) {
				t.Fatalf("len = %d, want %d", len(accts), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if accts[i].Name != want {
					t.Errorf("accounts[%d] = %s, want %s", i, accts[i].Name, want)
				}
			}

			_, idx, err := s.Active()
			if err != nil {
				t.Fatalf("Active: %v", err)
			}
			if idx != tt.wantActive {
				t.Errorf("active index = %d, want %d", idx, tt.wantActive)
			}
		})
	}
}

func TestStore_Delete_LastAccount(t *testing.T) {
	s := testStore(t)
	if _, err := s.Create("Only"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, _, err := s.Active(); !errors.Is(err, ErrNoAccounts) {
		t.Errorf("Active() after last delete error = %v, want ErrNoAccounts", err)
	}
}

type recordingPurger struct {
	purged []common.Address
}

func (r *recordingPurger) Purge(addr common.Address) error {
	r.purged = append(r.purged, addr)
	return nil
}

func TestStore_Delete_Cascades(t *testing.T) {
	s := testStore(t)
	p := &recordingPurger{}
	s.AddPurger(p)

	acct, err := s.Create("Main")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(p.purged) != 1 || p.purged[0] != acct.Address {
		t.Errorf("purged = %v, want [%s]", p.purged, acct.Address.Hex())
	}
}

func TestStore_Epoch(t *testing.T) {
	s := testStore(t)
	e0 := s.Epoch()

	if _, err := s.Create("A"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create("B"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	e1 := s.Epoch()
	if e1 <= e0 {
		t.Errorf("epoch did not advance on create: %d -> %d", e0, e1)
	}

	if err := s.SwitchActive(0); err != nil {
		t.Fatalf("SwitchActive: %v", err)
	}
	if s.Epoch() <= e1 {
		t.Error("epoch did not advance on switch")
	}

	// Switching to the current index is a no-op.
	e2 := s.Epoch()
	if err := s.SwitchActive(0); err != nil {
		t.Fatalf("SwitchActive: %v", err)
	}
	if s.Epoch() != e2 {
		t.Error("epoch advanced on no-op switch")
	}
}

func TestStore_Reload(t *testing.T) {
	db := storage.NewMemory()
	pass := []byte("passphrase")

	s, err := OpenWithParams(db, pass, testParams())
	if err != nil {
		t.Fatalf("OpenWithParams: %v", err)
	}
	if _, err := s.ImportMnemonic("Main", testMnemonic); err != nil {
		t.Fatalf("ImportMnemonic: %v", err)
	}
	if _, err := s.Create("Second"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SwitchActive(0); err != nil {
		t.Fatalf("SwitchActive: %v", err)
	}

	// Reopen from the same database.
	s2, err := OpenWithParams(db, pass, testParams())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if n := s2.Len(); n != 2 {
		t.Fatalf("Len() after reload = %d, want 2", n)
	}
	acct, idx, err := s2.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if idx != 0 || acct.Name != "Main" {
		t.Errorf("active = (%d, %s), want (0, Main)", idx, acct.Name)
	}
	if got := acct.Address.Hex(); got != testAddress {
		t.Errorf("reloaded address = %s, want %s", got, testAddress)
	}
	if acct.Mnemonic != testMnemonic {
		t.Error("mnemonic not preserved across reload")
	}
}

func TestStore_Reload_WrongPassphrase(t *testing.T) {
	db := storage.NewMemory()

	s, err := OpenWithParams(db, []byte("right"), testParams())
	if err != nil {
		t.Fatalf("OpenWithParams: %v", err)
	}
	if _, err := s.Create("Main"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := OpenWithParams(db, []byte("wrong"), testParams()); err == nil {
		t.Error("expected error opening vault with wrong passphrase")
	}
}
