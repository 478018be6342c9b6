// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"sort"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/internal/numbers"
)

// FeeFunc returns network fee and size estimation of the transaction
// with provided amount of selected utxos.
type FeeFunc func(selected int) (fee, size int64)

// SortUTXOs returns copy of utxos above the dust threshold sorted ascending by amount.
// Equal amounts keep their original order.
func SortUTXOs(utxos []bitcoin.UTXO, dustThreshold int64) []bitcoin.UTXO {
	sorted := make([]bitcoin.UTXO, 0, len(utxos))
	for _, utxo := range utxos {
		if numbers.IsAboveDust(utxo.Amount, dustThreshold) {
			sorted = append(sorted, utxo)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount < sorted[j].Amount
	})

	return sorted
}

// SelectUTXOs selects the smallest utxos until they cover required amount together with the fee
// recalculated for every selected count. Returns InsufficientError if all utxos are not enough.
func SelectUTXOs(utxos []bitcoin.UTXO, requiredAmount, dustThreshold int64, feeFn FeeFunc) (selected []bitcoin.UTXO, fee, size int64, err error) {
	candidates := SortUTXOs(utxos, dustThreshold)
	if len(candidates) == 0 {
		fee, _ = feeFn(1)
		return nil, 0, 0, NewInsufficientError(requiredAmount+fee, 0)
	}

	var total int64
	for idx := range candidates {
		total += candidates[idx].Amount
		fee, size = feeFn(idx + 1)
		if total >= requiredAmount+fee {
			return candidates[: idx+1 : idx+1], fee, size, nil
		}
	}

	return nil, 0, 0, NewInsufficientError(requiredAmount+fee, total)
}
