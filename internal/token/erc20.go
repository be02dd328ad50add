package token

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// The ERC-20 view surface the registry reads. name/symbol/decimals are
// optional in the standard, so each is queried best-effort.
const erc20JSON = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI = mustParseABI(erc20JSON)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}

// ChainReader is the read-only ledger capability the registry depends on.
type ChainReader interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

func callName(ctx context.Context, reader ChainReader, contract common.Address) (string, error) {
	out, err := call(ctx, reader, contract, "name")
	if err != nil {
		return "", err
	}
	var name string
	if err := erc20ABI.UnpackIntoInterface(&name, "name", out); err != nil {
		return "", fmt.Errorf("unpack name: %w", err)
	}
	return name, nil
}

func callSymbol(ctx context.Context, reader ChainReader, contract common.Address) (string, error) {
	out, err := call(ctx, reader, contract, "symbol")
	if err != nil {
		return "", err
	}
	var symbol string
	if err := erc20ABI.UnpackIntoInterface(&symbol, "symbol", out); err != nil {
		return "", fmt.Errorf("unpack symbol: %w", err)
	}
	return symbol, nil
}

func callDecimals(ctx context.Context, reader ChainReader, contract common.Address) (uint8, error) {
	out, err := call(ctx, reader, contract, "decimals")
	if err != nil {
		return 0, err
	}
	var decimals uint8
	if err := erc20ABI.UnpackIntoInterface(&decimals, "decimals", out); err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	return decimals, nil
}

func callBalanceOf(ctx context.Context, reader ChainReader, contract, owner common.Address) (*big.Int, error) {
	out, err := call(ctx, reader, contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", out); err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return balance, nil
}

func call(ctx context.Context, reader ChainReader, contract common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := reader.CallContract(ctx, contract, data)
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s(): empty return", method)
	}
	return out, nil
}
