// Package provider is the engine's JSON-RPC client for an Ethereum node or
// node service. It wraps the raw transport with typed methods for exactly
// the calls the engine makes: balance reads, contract view calls, gas price,
// nonce, raw broadcast, and asset-transfer history.
package provider

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/etherpouch/etherpouch/internal/log"
)

// DefaultTimeout bounds every provider call that does not already carry a
// deadline.
const DefaultTimeout = 15 * time.Second

// Client is a typed Ethereum JSON-RPC client.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// Dial connects to the given JSON-RPC endpoint URL.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	return DialWithTimeout(ctx, endpoint, DefaultTimeout)
}

// DialWithTimeout is Dial with a custom per-call timeout.
func DialWithTimeout(ctx context.Context, endpoint string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial provider: %w", err)
	}
	return &Client{rpc: c, timeout: timeout}, nil
}

// Close shuts down the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// withDeadline attaches the client timeout when the caller did not set one.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// BalanceAt returns the native-asset balance of addr in wei at the latest
// block.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_getBalance", addr, "latest"); err != nil {
		return nil, fmt.Errorf("eth_getBalance %s: %w", addr.Hex(), err)
	}
	return (*big.Int)(&result), nil
}

// CallContract executes a read-only call against the contract at to.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	call := map[string]interface{}{
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_call", call, "latest"); err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", to.Hex(), err)
	}
	return result, nil
}

// GasPrice returns the current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return (*big.Int)(&result), nil
}

// PendingNonceAt returns the next nonce for addr including pending
// transactions.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_getTransactionCount", addr, "pending"); err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount %s: %w", addr.Hex(), err)
	}
	return uint64(result), nil
}

// ChainID returns the chain identifier of the connected network.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return (*big.Int)(&result), nil
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
// The call returns once the provider accepts the transaction into its
// pending pool; it does not wait for confirmation.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	log.Provider.Debug().Str("hash", hash.Hex()).Msg("raw transaction accepted")
	return hash, nil
}
