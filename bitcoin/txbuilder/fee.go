// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

const (
	// txHeaderSizeVBytes defines rough size of version, locktime and counters.
	txHeaderSizeVBytes int64 = 10
	// inputSizeVBytes defines rough upper bound of one input size.
	inputSizeVBytes int64 = 180
	// outputSizeVBytes defines rough size of one output.
	outputSizeVBytes int64 = 34
)

// RoughTxSizeEstimate returns transaction rough estimated size in vBytes.
// Change output, if included, is counted on top of the provided outputs.
func RoughTxSizeEstimate(inputs, outputs int, includeChangeOutput bool) int64 {
	size := txHeaderSizeVBytes + inputSizeVBytes*int64(inputs) + outputSizeVBytes*int64(outputs)
	if includeChangeOutput {
		size += outputSizeVBytes
	}

	return size
}

// EstimateFee returns network fee in satoshi together with the size it is calculated for.
func EstimateFee(inputs, outputs int, satoshiPerVByte int64, includeChangeOutput bool) (fee, size int64) {
	size = RoughTxSizeEstimate(inputs, outputs, includeChangeOutput)

	return size * satoshiPerVByte, size
}
