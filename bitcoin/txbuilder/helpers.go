// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrMissingPrevOutput defines that psbt input has neither witness nor non-witness utxo.
	ErrMissingPrevOutput = errors.New("missing previous output")
	// ErrHelpingIndexOverflow defines that input index does not fit into helping key value.
	ErrHelpingIndexOverflow = errors.New("input index does not fit into helping key")
)

// ExtractSignIndexesFromPSBT returns map with signing parties and input indexes they sign.
func ExtractSignIndexesFromPSBT(data []byte) (map[InputsHelpingKey][]int, error) {
	var result = make(map[InputsHelpingKey][]int, 2)
	p, err := psbt.NewFromRawBytes(bytes.NewBuffer(data), false)
	if err != nil {
		return nil, err
	}

	for _, unknown := range p.Unknowns {
		if len(unknown.Key) != 1 {
			continue
		}

		key, err := InputsHelpingKeyFromBytes(unknown.Key)
		if err != nil {
			return nil, err
		}

		result[key] = make([]int, len(unknown.Value))
		for idx, val := range unknown.Value {
			result[key][idx] = int(val)
		}
	}

	return result, nil
}

// newHelpingUnknown encodes input indexes under the helping key.
func newHelpingUnknown(key InputsHelpingKey, indexes []int) (*psbt.Unknown, error) {
	value := make([]byte, len(indexes))
	for i, index := range indexes {
		if index < 0 || index > math.MaxUint8 {
			return nil, fmt.Errorf("%w: %d", ErrHelpingIndexOverflow, index)
		}

		value[i] = byte(index)
	}

	return &psbt.Unknown{Key: key.Bytes(), Value: value}, nil
}

// PrevOutputFetcher returns fetcher of the outputs spent by the psbt inputs.
// Witness utxo is preferred, non-witness utxo output is taken otherwise.
func PrevOutputFetcher(p *psbt.Packet) (*txscript.MultiPrevOutFetcher, error) {
	if len(p.Inputs) != len(p.UnsignedTx.TxIn) {
		return nil, psbt.ErrInvalidPsbtFormat
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(p.Inputs))
	for idx, input := range p.Inputs {
		outPoint := p.UnsignedTx.TxIn[idx].PreviousOutPoint
		switch {
		case input.WitnessUtxo != nil:
			prevOuts[outPoint] = input.WitnessUtxo
		case input.NonWitnessUtxo != nil:
			if input.NonWitnessUtxo.TxHash() != outPoint.Hash || int(outPoint.Index) >= len(input.NonWitnessUtxo.TxOut) {
				return nil, fmt.Errorf("input #%d: %w", idx, ErrMissingPrevOutput)
			}

			prevOuts[outPoint] = input.NonWitnessUtxo.TxOut[outPoint.Index]
		default:
			return nil, fmt.Errorf("input #%d: %w", idx, ErrMissingPrevOutput)
		}
	}

	return txscript.NewMultiPrevOutFetcher(prevOuts), nil
}
