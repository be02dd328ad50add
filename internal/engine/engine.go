// Package engine validates, signs, and broadcasts value transfers for the
// active account. The send path never retries: a failed broadcast surfaces
// to the caller rather than risking duplicate submission.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/etherpouch/etherpouch/internal/account"
	"github.com/etherpouch/etherpouch/internal/log"
	"github.com/etherpouch/etherpouch/pkg/ethunits"
)

// TransferGasLimit is the fixed gas cost of a plain value transfer.
const TransferGasLimit = 21000

// feeTimeout bounds the gas-price query so fee estimation can never block
// transaction construction indefinitely.
const feeTimeout = 5 * time.Second

// fallbackGasPrice (20 gwei) is used when the dynamic query fails.
var fallbackGasPrice = big.NewInt(20_000_000_000)

// Errors returned by the engine.
var (
	// ErrInvalidRecipient means the recipient is not a well-formed address.
	ErrInvalidRecipient = errors.New("invalid recipient address")

	// ErrInvalidAmount means the amount string is not a parseable decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance means the amount is not positive or exceeds
	// the last known balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSigningFailure means no signer could be materialized or signing
	// failed.
	ErrSigningFailure = errors.New("transaction signing failed")

	// ErrBroadcast means the provider rejected or failed to accept the
	// signed transaction.
	ErrBroadcast = errors.New("transaction broadcast failed")
)

// Network is the provider capability the engine depends on.
type Network interface {
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
}

// FeeEstimate is a projected cost for a plain transfer.
type FeeEstimate struct {
	GasPrice *big.Int
	GasLimit uint64
	// Static reports that the dynamic gas-price query failed and the
	// fallback price was used.
	Static bool
}

// TotalWei returns the estimated total fee in wei.
func (f FeeEstimate) TotalWei() *big.Int {
	return new(big.Int).Mul(f.GasPrice, new(big.Int).SetUint64(f.GasLimit))
}

// Ether returns the estimated total fee as a decimal ether string.
func (f FeeEstimate) Ether() string {
	return ethunits.FormatEther(f.TotalWei())
}

// Engine builds and sends value transfers using the account store's current
// signer.
type Engine struct {
	store   *account.Store
	net     Network
	chainID *big.Int

	mu        sync.Mutex
	lastKnown map[common.Address]*big.Int // last fetched balance per address
}

// New creates a transaction engine for the given chain.
func New(store *account.Store, net Network, chainID *big.Int) *Engine {
	return &Engine{
		store:     store,
		net:       net,
		chainID:   chainID,
		lastKnown: make(map[common.Address]*big.Int),
	}
}

// RefreshBalance fetches the active account's native balance, updates the
// engine's last-known value, and returns it as a decimal ether string.
func (e *Engine) RefreshBalance(ctx context.Context) (string, error) {
	acct, _, err := e.store.Active()
	if err != nil {
		return "", err
	}
	wei, err := e.net.BalanceAt(ctx, acct.Address)
	if err != nil {
		return "", fmt.Errorf("balance for %s: %w", acct.Address.Hex(), err)
	}

	e.mu.Lock()
	e.lastKnown[acct.Address] = wei
	e.mu.Unlock()

	return ethunits.FormatEther(wei), nil
}

// EstimateFee returns the projected cost of a plain transfer. The dynamic
// gas-price query is bounded by a short timeout; on failure a static
// fallback price is used so construction is never blocked.
func (e *Engine) EstimateFee(ctx context.Context) FeeEstimate {
	ctx, cancel := context.WithTimeout(ctx, feeTimeout)
	defer cancel()

	price, err := e.net.GasPrice(ctx)
	if err != nil {
		log.Engine.Warn().Err(err).Msg("gas price query failed, using fallback")
		return FeeEstimate{GasPrice: new(big.Int).Set(fallbackGasPrice), GasLimit: TransferGasLimit, Static: true}
	}
	return FeeEstimate{GasPrice: price, GasLimit: TransferGasLimit}
}

// Send validates and broadcasts a transfer of amount (decimal ether string)
// to recipient, returning the transaction hash once the provider accepts it
// into the pending pool. It does not wait for confirmation and never
// retries any failure.
//
// The balance check uses the last known balance; the engine does not
// re-fetch synchronously before sending, so a deliberately narrow staleness
// window exists; the provider remains the final authority.
func (e *Engine) Send(ctx context.Context, recipient, amount string) (common.Hash, error) {
	recipient = strings.TrimSpace(recipient)
	if !common.IsHexAddress(recipient) {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidRecipient, recipient)
	}
	to := common.HexToAddress(recipient)

	value, err := ethunits.ParseEther(strings.TrimSpace(amount))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	signer, err := e.store.CurrentSigner()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	from := signer.Address()

	balance, err := e.balanceFor(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	if value.Sign() <= 0 || value.Cmp(balance) > 0 {
		return common.Hash{}, fmt.Errorf("%w: have %s, want %s",
			ErrInsufficientBalance, ethunits.FormatEther(balance), ethunits.FormatEther(value))
	}

	nonce, err := e.net.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce for %s: %w", from.Hex(), err)
	}

	fee := e.EstimateFee(ctx)

	priv, err := signer.ECDSA()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	tx := types.NewTransaction(nonce, to, value, TransferGasLimit, fee.GasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), priv)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	hash, err := e.net.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	log.Engine.Info().
		Str("hash", hash.Hex()).
		Str("to", to.Hex()).
		Str("amount", amount).
		Msg("transaction submitted")
	return hash, nil
}

// balanceFor returns the last known balance for addr, fetching once when
// nothing has been cached yet.
func (e *Engine) balanceFor(ctx context.Context, addr common.Address) (*big.Int, error) {
	e.mu.Lock()
	cached, ok := e.lastKnown[addr]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	wei, err := e.net.BalanceAt(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("balance for %s: %w", addr.Hex(), err)
	}
	e.mu.Lock()
	e.lastKnown[addr] = wei
	e.mu.Unlock()
	return wei, nil
}
