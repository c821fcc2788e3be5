package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Amounts are whole units held in decimal.Decimal and bounded to the signed
// 128-bit range. Persisted as numeric(39,0).

var (
	maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	// PercentScale is the fixed factor applied to payout multipliers.
	PercentScale = decimal.NewFromInt(100)
	// BpsScale is the denominator of basis-point fees.
	BpsScale = decimal.NewFromInt(10000)
)

// IsWhole reports whether d carries no fractional part.
func IsWhole(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// InRange reports whether d is whole and fits in a signed 128-bit integer.
func InRange(d decimal.Decimal) bool {
	if !IsWhole(d) {
		return false
	}
	b := d.BigInt()
	return b.Cmp(maxAmount) <= 0 && b.Cmp(minAmount) >= 0
}

// ValidateAmount accepts strictly positive whole amounts within range.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || !IsWhole(d) {
		return ErrInvalidAmount
	}
	if !InRange(d) {
		return ErrOverflow
	}
	return nil
}

func checked(d decimal.Decimal) (decimal.Decimal, error) {
	if !InRange(d) {
		return decimal.Zero, ErrOverflow
	}
	return d, nil
}

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	return checked(a.Add(b))
}

// CheckedSub returns a-b or ErrOverflow.
func CheckedSub(a, b decimal.Decimal) (decimal.Decimal, error) {
	return checked(a.Sub(b))
}

// CheckedMul returns a*b or ErrOverflow.
func CheckedMul(a, b decimal.Decimal) (decimal.Decimal, error) {
	return checked(a.Mul(b))
}

// MulDiv computes a*b/c truncating toward zero. The intermediate product
// must itself fit in range. A zero divisor yields zero.
func MulDiv(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Zero, nil
	}
	p, err := CheckedMul(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	q, _ := p.QuoRem(c, 0)
	return q, nil
}

// Sum adds the amounts with overflow checking.
func Sum(values ...decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, v := range values {
		var err error
		if total, err = CheckedAdd(total, v); err != nil {
			return decimal.Zero, err
		}
	}
	return total, nil
}
