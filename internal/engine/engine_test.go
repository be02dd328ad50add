package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/etherpouch/etherpouch/internal/account"
	"github.com/etherpouch/etherpouch/internal/storage"
)

const (
	testMnemonic  = "test test test test test test test test test test test junk"
	testAddress   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testRecipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

var testChainID = big.NewInt(11155111) // Sepolia

// fakeNetwork implements Network with canned responses and records
// broadcasts.
type fakeNetwork struct {
	balance      *big.Int
	gasPrice     *big.Int
	gasPriceErr  error
	nonce        uint64
	broadcastErr error

	broadcasts [][]byte
}

func (f *fakeNetwork) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeNetwork) GasPrice(context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeNetwork) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeNetwork) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	if f.broadcastErr != nil {
		return common.Hash{}, f.broadcastErr
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	f.broadcasts = append(f.broadcasts, buf)

	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func oneEther() *big.Int {
	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	return wei
}

func testEngine(t *testing.T, net *fakeNetwork) *Engine {
	t.Helper()
	store, err := account.OpenWithParams(storage.NewMemory(), []byte("pass"),
		account.VaultParams{Memory: 64, Iterations: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.ImportMnemonic("Main", testMnemonic); err != nil {
		t.Fatalf("import: %v", err)
	}
	return New(store, net, testChainID)
}

func TestSend(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1_000_000_000), nonce: 7}
	e := testEngine(t, net)

	hash, err := e.Send(context.Background(), testRecipient, "0.25")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Error("Send returned zero hash")
	}
	if len(net.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(net.broadcasts))
	}

	// Decode the raw transaction and verify what was signed.
	var tx types.Transaction
	if err := tx.UnmarshalBinary(net.broadcasts[0]); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if tx.To() == nil || *tx.To() != common.HexToAddress(testRecipient) {
		t.Errorf("to = %v, want %s", tx.To(), testRecipient)
	}
	wantValue, _ := new(big.Int).SetString("250000000000000000", 10)
	if tx.Value().Cmp(wantValue) != 0 {
		t.Errorf("value = %s, want %s", tx.Value(), wantValue)
	}
	if tx.Nonce() != 7 {
		t.Errorf("nonce = %d, want 7", tx.Nonce())
	}
	if tx.Gas() != TransferGasLimit {
		t.Errorf("gas = %d, want %d", tx.Gas(), TransferGasLimit)
	}

	// The signature must recover to the sender's address.
	from, err := types.Sender(types.LatestSignerForChainID(testChainID), &tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != common.HexToAddress(testAddress) {
		t.Errorf("sender = %s, want %s", from.Hex(), testAddress)
	}
}

func TestSend_InvalidRecipient(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1), nonce: 0}
	e := testEngine(t, net)

	for _, recipient := range []string{"", "0x123", "not-an-address"} {
		_, err := e.Send(context.Background(), recipient, "0.1")
		if !errors.Is(err, ErrInvalidRecipient) {
			t.Errorf("Send(%q) error = %v, want ErrInvalidRecipient", recipient, err)
		}
	}
	if len(net.broadcasts) != 0 {
		t.Errorf("broadcasts issued for invalid recipients: %d", len(net.broadcasts))
	}
}

func TestSend_InsufficientBalance(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1), nonce: 0}
	e := testEngine(t, net)

	tests := []struct {
		name   string
		amount string
	}{
		{"over balance", "2"},
		{"zero", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Send(context.Background(), testRecipient, tt.amount)
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("error = %v, want ErrInsufficientBalance", err)
			}
		})
	}

	// The balance check must run before any broadcast.
	if len(net.broadcasts) != 0 {
		t.Errorf("broadcasts issued despite insufficient balance: %d", len(net.broadcasts))
	}
}

func TestSend_MalformedAmount(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1), nonce: 0}
	e := testEngine(t, net)

	_, err := e.Send(context.Background(), testRecipient, "abc")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}
}

func TestSend_UninitializedStore(t *testing.T) {
	store, err := account.OpenWithParams(storage.NewMemory(), []byte("pass"),
		account.VaultParams{Memory: 64, Iterations: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1)}
	e := New(store, net, testChainID)

	_, err = e.Send(context.Background(), testRecipient, "0.1")
	if !errors.Is(err, ErrSigningFailure) {
		t.Errorf("error = %v, want ErrSigningFailure", err)
	}
}

func TestSend_BroadcastFailure(t *testing.T) {
	net := &fakeNetwork{
		balance:      oneEther(),
		gasPrice:     big.NewInt(1),
		broadcastErr: errors.New("nonce too low"),
	}
	e := testEngine(t, net)

	_, err := e.Send(context.Background(), testRecipient, "0.1")
	if !errors.Is(err, ErrBroadcast) {
		t.Errorf("error = %v, want ErrBroadcast", err)
	}
}

func TestEstimateFee_Fallback(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPriceErr: errors.New("unreachable")}
	e := testEngine(t, net)

	fee := e.EstimateFee(context.Background())
	if !fee.Static {
		t.Error("expected static fallback estimate")
	}
	if fee.GasPrice.Sign() <= 0 {
		t.Error("fallback gas price must be positive")
	}
	if fee.GasLimit != TransferGasLimit {
		t.Errorf("gas limit = %d, want %d", fee.GasLimit, TransferGasLimit)
	}
}

func TestEstimateFee_Dynamic(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(3_000_000_000)}
	e := testEngine(t, net)

	fee := e.EstimateFee(context.Background())
	if fee.Static {
		t.Error("expected dynamic estimate")
	}
	wantTotal := new(big.Int).Mul(big.NewInt(3_000_000_000), big.NewInt(TransferGasLimit))
	if fee.TotalWei().Cmp(wantTotal) != 0 {
		t.Errorf("total = %s, want %s", fee.TotalWei(), wantTotal)
	}
}

func TestRefreshBalance(t *testing.T) {
	net := &fakeNetwork{balance: oneEther(), gasPrice: big.NewInt(1)}
	e := testEngine(t, net)

	got, err := e.RefreshBalance(context.Background())
	if err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	if got != "1" {
		t.Errorf("balance = %s, want 1", got)
	}
}
