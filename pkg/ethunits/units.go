// Package ethunits converts between human decimal amount strings and
// integer base units (wei for the native asset, scaled units for tokens).
package ethunits

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the native asset's decimal scale.
const EtherDecimals = 18

// ParseUnits converts a decimal amount string to integer base units at the
// given scale. It rejects malformed input, negative amounts, and fractions
// finer than the scale allows.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits converts integer base units to a decimal string at the given
// scale, with trailing zeros trimmed.
func FormatUnits(units *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(units, -int32(decimals)).String()
}

// ParseEther converts a decimal ether string to wei.
func ParseEther(amount string) (*big.Int, error) {
	return ParseUnits(amount, EtherDecimals)
}

// FormatEther converts wei to a decimal ether string.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}
