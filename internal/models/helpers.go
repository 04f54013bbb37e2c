package models

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 9

// ApplyBasisPoints returns floor(amount * bp / BasisPoints). The product is
// computed in 128 bits; ErrOverflow is returned only if the quotient itself
// does not fit in 64 bits.
func ApplyBasisPoints(amount, bp uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, bp)
	if hi >= BasisPoints {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, BasisPoints)
	return q, nil
}

func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// ParseRandomValue decodes a 64 character hex string into 32 random bytes.
func ParseRandomValue(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(out) {
		return out, ErrInvalidRandomValue
	}
	copy(out[:], raw)
	return out, nil
}

// FormatLamports renders an amount as SOL, e.g. 1960000 -> "0.00196 SOL".
func FormatLamports(amount uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -lamportsPerSOL)
	return d.String() + " SOL"
}

// ParseSOL is the inverse of FormatLamports. It accepts "1.5" or "1.5 SOL"
// and rejects amounts finer than one lamport.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "SOL")))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	lamports := d.Shift(lamportsPerSOL)
	if lamports.IsNegative() || !lamports.Equal(lamports.Truncate(0)) {
		return 0, ErrInvalidAmount
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, ErrOverflow
	}
	return n.Uint64(), nil
}
