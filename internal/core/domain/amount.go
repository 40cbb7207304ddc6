package domain

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of implied decimal places of every amount.
	Decimals = 18

	// MaxFeeRateBps caps the transfer fee at 1%.
	MaxFeeRateBps uint64 = 100

	// BpsDenominator is the basis-point scale.
	BpsDenominator uint64 = 10_000
)

// MaxAmount is 2^256-1. An allowance of MaxAmount is never decremented.
var MaxAmount = new(uint256.Int).SetAllOne()

// ParseAmount parses a base-unit amount written as a decimal integer string.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("empty amount")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// ParseUnits converts a token amount such as "1.5" into base units (1.5e18).
func ParseUnits(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative token amount %q", s)
	}
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("token amount %q has more than %d decimals", s, Decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("token amount %q overflows 256 bits", s)
	}
	return v, nil
}

// FormatUnits renders base units as a token amount, e.g. 995e18 -> "995".
func FormatUnits(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -Decimals).String()
}

// AmountString renders nil as "0".
func AmountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
