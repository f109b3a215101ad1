// Package types provides fixed-point amount helpers shared by every ledger
// package.
package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of implied decimal places of every ledger amount.
const Decimals = 18

var (
	// ErrInvalidAmount reports a zero, overflowing or unparseable quantity.
	ErrInvalidAmount = errors.New("capshield: invalid amount")

	// ErrZeroAddress reports the null identity where a real one is required.
	ErrZeroAddress = errors.New("capshield: zero address")

	unit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
)

// Unit returns one whole token in base units (10^18).
func Unit() *uint256.Int { return new(uint256.Int).Set(unit) }

// Units converts a whole-token count into base units.
func Units(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), unit)
}

// Unlimited returns the maximum representable amount. Allowances equal to it
// are never decremented.
func Unlimited() *uint256.Int { return new(uint256.Int).SetAllOne() }

// IsUnlimited reports whether a is the unlimited sentinel.
func IsUnlimited(a *uint256.Int) bool {
	return a != nil && a.Eq(new(uint256.Int).SetAllOne())
}

// IsZero reports whether a is nil or zero.
func IsZero(a *uint256.Int) bool { return a == nil || a.IsZero() }

// Clone returns a copy of a, treating nil as zero.
func Clone(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}

// ParseUnits parses a non-negative decimal token amount such as "1.5" or
// "1000" into base units.
func ParseUnits(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	w, err := uint256.FromDecimal(whole)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	f, err := uint256.FromDecimal(frac)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}

	out, overflow := new(uint256.Int).MulOverflow(w, unit)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	if _, overflow = out.AddOverflow(out, f); overflow {
		return nil, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	return out, nil
}

// MustParseUnits is like ParseUnits but panics on error. Use for constants.
func MustParseUnits(s string) *uint256.Int {
	a, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatUnits formats base units as a decimal token amount with trailing
// zeros trimmed: 1500000000000000000 -> "1.5".
func FormatUnits(a *uint256.Int) string {
	if IsZero(a) {
		return "0"
	}
	whole, frac := new(uint256.Int).DivMod(a, unit, new(uint256.Int))
	if frac.IsZero() {
		return whole.Dec()
	}
	fs := frac.Dec()
	fs = strings.Repeat("0", Decimals-len(fs)) + fs
	return whole.Dec() + "." + strings.TrimRight(fs, "0")
}

// WholeTokens returns an approximate float value of a in whole tokens, for
// metrics only.
func WholeTokens(a *uint256.Int) float64 {
	if IsZero(a) {
		return 0
	}
	f := new(big.Float).SetInt(a.ToBig())
	f.Quo(f, new(big.Float).SetInt(unit.ToBig()))
	v, _ := f.Float64()
	return v
}

// Sum adds values, reporting overflow.
func Sum(values ...*uint256.Int) (*uint256.Int, bool) {
	total := new(uint256.Int)
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, v); overflow {
			return nil, true
		}
	}
	return total, false
}
