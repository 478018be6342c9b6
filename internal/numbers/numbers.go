// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// Zero defines 0 number.
const Zero = 0

// ErrOutOfRange defines that amount is negative or exceeds total bitcoin supply.
var ErrOutOfRange = errors.New("amount out of range")

var maxAmount = decimal.NewFromInt(btcutil.MaxSatoshi)

// FloorMul returns amount multiplied by ratio, rounded down to the whole satoshi.
func FloorMul(amount int64, ratio decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(ratio).Floor().IntPart()
}

// IsAboveDust returns true if the amount is worth to create an output for.
func IsAboveDust(amount, dustThreshold int64) bool {
	return amount > dustThreshold
}

// Sum returns summary value of the provided amounts.
func Sum(amounts ...int64) int64 {
	var sum int64 = Zero
	for _, amount := range amounts {
		sum += amount
	}

	return sum
}

// CheckedMul returns product of a and b, ErrOutOfRange if it is not a valid satoshi amount.
func CheckedMul(a, b int64) (int64, error) {
	return toAmount(decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)))
}

// CheckedSum returns summary value of the amounts, ErrOutOfRange if any of the amounts
// or the sum is not a valid satoshi amount.
func CheckedSum(amounts ...int64) (int64, error) {
	sum := decimal.Zero
	for _, amount := range amounts {
		if _, err := toAmount(decimal.NewFromInt(amount)); err != nil {
			return 0, err
		}

		sum = sum.Add(decimal.NewFromInt(amount))
	}

	return toAmount(sum)
}

func toAmount(value decimal.Decimal) (int64, error) {
	if value.IsNegative() || value.GreaterThan(maxAmount) {
		return 0, ErrOutOfRange
	}

	return value.IntPart(), nil
}
