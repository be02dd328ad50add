// Package token maintains each account's watch-list of token contracts and
// their cached balances.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/etherpouch/etherpouch/internal/log"
	"github.com/etherpouch/etherpouch/internal/storage"
	"github.com/etherpouch/etherpouch/pkg/ethunits"
)

// Metadata placeholders used when an optional ERC-20 view function is
// missing or failing. A contract with a broken name() must still be addable.
const (
	PlaceholderName     = "Unknown Token"
	PlaceholderSymbol   = "UNK"
	PlaceholderDecimals = 18
)

// DefaultRefreshLimit caps concurrent in-flight balance queries so a large
// watch-list does not trip provider rate limits.
const DefaultRefreshLimit = 4

// Errors returned by the registry.
var (
	// ErrInvalidAddress means the input is not a well-formed 20-byte hex
	// address.
	ErrInvalidAddress = errors.New("invalid token address")

	// ErrDuplicate means the token is already on the account's watch-list.
	ErrDuplicate = errors.New("token already in list")
)

// Token is one watched contract on an account's list.
type Token struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	AddedAt  time.Time      `json:"addedAt"`
}

// Registry stores per-account token lists and their cached balances.
// The list is persisted under a key parameterized by the owning account's
// address; balances live in memory only and are rebuilt on refresh.
type Registry struct {
	mu       sync.Mutex
	db       storage.DB
	reader   ChainReader
	limit    int
	balances map[common.Address]map[common.Address]string // owner -> token -> balance
}

// NewRegistry creates a registry backed by db, reading contract state
// through reader.
func NewRegistry(db storage.DB, reader ChainReader) *Registry {
	return &Registry{
		db:       db,
		reader:   reader,
		limit:    DefaultRefreshLimit,
		balances: make(map[common.Address]map[common.Address]string),
	}
}

// SetRefreshLimit overrides the concurrent balance-query cap.
func (r *Registry) SetRefreshLimit(n int) {
	if n > 0 {
		r.limit = n
	}
}

// listKey returns the storage key for owner's token list.
func listKey(owner common.Address) []byte {
	return []byte("tokens/" + strings.ToLower(owner.Hex()))
}

// Add validates and normalizes addr, queries the contract's metadata
// best-effort, and appends the token to owner's list. Each of the three
// metadata queries fails independently to its placeholder; only a malformed
// or duplicate address aborts the add.
func (r *Registry) Add(ctx context.Context, owner common.Address, addr string) (Token, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	contract := common.HexToAddress(addr)

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(owner)
	if err != nil {
		return Token{}, err
	}
	for _, t := range list {
		if t.Address == contract {
			return Token{}, fmt.Errorf("%w: %s", ErrDuplicate, contract.Hex())
		}
	}

	tok := Token{
		Address:  contract,
		Name:     PlaceholderName,
		Symbol:   PlaceholderSymbol,
		Decimals: PlaceholderDecimals,
		AddedAt:  time.Now().UTC(),
	}

	if name, err := callName(ctx, r.reader, contract); err == nil {
		tok.Name = name
	} else {
		log.Token.Warn().Err(err).Str("contract", contract.Hex()).Msg("token name unavailable")
	}
	if symbol, err := callSymbol(ctx, r.reader, contract); err == nil {
		tok.Symbol = symbol
	} else {
		log.Token.Warn().Err(err).Str("contract", contract.Hex()).Msg("token symbol unavailable")
	}
	if decimals, err := callDecimals(ctx, r.reader, contract); err == nil {
		tok.Decimals = decimals
	} else {
		log.Token.Warn().Err(err).Str("contract", contract.Hex()).Msg("token decimals unavailable")
	}

	list = append(list, tok)
	if err := r.save(owner, list); err != nil {
		return Token{}, err
	}

	log.Token.Info().Str("symbol", tok.Symbol).Str("contract", contract.Hex()).Msg("token added")
	return tok, nil
}

// Remove deletes the token and its cached balance from owner's list.
// Removing an absent token is a no-op.
func (r *Registry) Remove(owner common.Address, addr string) error {
	if !common.IsHexAddress(strings.TrimSpace(addr)) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	contract := common.HexToAddress(strings.TrimSpace(addr))

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(owner)
	if err != nil {
		return err
	}

	kept := list[:0]
	for _, t := range list {
		if t.Address != contract {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return nil
	}

	if err := r.save(owner, kept); err != nil {
		return err
	}
	if cache, ok := r.balances[owner]; ok {
		delete(cache, contract)
	}
	return nil
}

// List returns owner's watched tokens in the order they were added.
func (r *Registry) List(owner common.Address) ([]Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(owner)
}

// Balance returns the cached balance string for a watched token, or "0"
// when no refresh has run yet.
func (r *Registry) Balance(owner, contract common.Address) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cache, ok := r.balances[owner]; ok {
		if b, ok := cache[contract]; ok {
			return b
		}
	}
	return "0"
}

// RefreshBalances queries the balance of every watched token for owner,
// with at most limit queries in flight. A failing token contributes "0"
// without failing the refresh; one broken contract must not blank out the
// rest of the portfolio.
func (r *Registry) RefreshBalances(ctx context.Context, owner common.Address) (map[common.Address]string, error) {
	list, err := r.List(owner)
	if err != nil {
		return nil, err
	}

	results := make([]string, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	for i, tok := range list {
		g.Go(func() error {
			bal, err := callBalanceOf(gctx, r.reader, tok.Address, owner)
			if err != nil {
				log.Token.Warn().Err(err).Str("symbol", tok.Symbol).Msg("balance query failed")
				results[i] = "0"
				return nil
			}
			results[i] = ethunits.FormatUnits(bal, tok.Decimals)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	out := make(map[common.Address]string, len(list))
	for i, tok := range list {
		out[tok.Address] = results[i]
	}

	r.mu.Lock()
	r.balances[owner] = out
	r.mu.Unlock()

	copied := make(map[common.Address]string, len(out))
	for k, v := range out {
		copied[k] = v
	}
	return copied, nil
}

// Purge removes owner's entire token list and balance cache. It implements
// the account store's deletion cascade.
func (r *Registry) Purge(owner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.balances, owner)
	if err := r.db.Delete(listKey(owner)); err != nil {
		return fmt.Errorf("purge tokens for %s: %w", owner.Hex(), err)
	}
	return nil
}

// load reads owner's persisted list. Callers hold the mutex.
func (r *Registry) load(owner common.Address) ([]Token, error) {
	data, err := r.db.Get(listKey(owner))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tokens for %s: %w", owner.Hex(), err)
	}
	var list []Token
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse tokens for %s: %w", owner.Hex(), err)
	}
	return list, nil
}

// save writes owner's list. Callers hold the mutex.
func (r *Registry) save(owner common.Address, list []Token) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := r.db.Put(listKey(owner), data); err != nil {
		return fmt.Errorf("save tokens for %s: %w", owner.Hex(), err)
	}
	return nil
}
