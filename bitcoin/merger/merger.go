// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package merger combines the seller signed listing with the buyer signed
// fulfillment into the final transaction.
package merger

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/verifier"
)

// ErrMerger indicates that an error occurred while merging PSBTs.
var ErrMerger = errors.New("merger error")

// Merge splices seller signed inputs into the slots the buyer PSBT reserves for them
// starting at txbuilder.SellerInputIndex, verifies every signature, finalizes all
// inputs and extracts the transaction. Only reserved slots are overwritten.
func Merge(sellerSignedPSBT, buyerSignedPSBT []byte) (_ *wire.MsgTx, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrMerger, err)
		}
	}()

	sellerPacket, err := psbt.NewFromRawBytes(bytes.NewReader(sellerSignedPSBT), false)
	if err != nil {
		return nil, fmt.Errorf("seller psbt: %w", err)
	}

	buyerPacket, err := psbt.NewFromRawBytes(bytes.NewReader(buyerSignedPSBT), false)
	if err != nil {
		return nil, fmt.Errorf("buyer psbt: %w", err)
	}

	sellerTx, buyerTx := sellerPacket.UnsignedTx, buyerPacket.UnsignedTx
	sellerInputs := len(sellerTx.TxIn)
	if sellerInputs == 0 || txbuilder.SellerInputIndex+sellerInputs > len(buyerTx.TxIn) {
		return nil, fmt.Errorf("%w: %d seller inputs do not fit %d buyer inputs",
			bitcoin.ErrInvalidInputCount, sellerInputs, len(buyerTx.TxIn))
	}

	if txbuilder.SellerInputIndex+sellerInputs > len(buyerTx.TxOut) || len(sellerTx.TxOut) < sellerInputs {
		return nil, fmt.Errorf("%w: seller outputs do not match reserved slots", bitcoin.ErrInvalidOutputCount)
	}

	for k, sellerIn := range sellerTx.TxIn {
		slot := txbuilder.SellerInputIndex + k
		if sellerIn.PreviousOutPoint != buyerTx.TxIn[slot].PreviousOutPoint {
			return nil, fmt.Errorf("%w: seller input #%d spends %s, slot #%d spends %s", bitcoin.ErrInvalidInput,
				k, sellerIn.PreviousOutPoint, slot, buyerTx.TxIn[slot].PreviousOutPoint)
		}

		sellerOut, slotOut := sellerTx.TxOut[k], buyerTx.TxOut[slot]
		if sellerOut.Value != slotOut.Value || !bytes.Equal(sellerOut.PkScript, slotOut.PkScript) {
			return nil, fmt.Errorf("%w: seller output #%d differs from output #%d", bitcoin.ErrInvalidOutput, k, slot)
		}

		buyerTx.TxIn[slot] = copyTxIn(sellerIn)
		buyerPacket.Inputs[slot] = sellerPacket.Inputs[k]
	}

	signIndexes := make([]bitcoin.SignIndex, len(buyerTx.TxIn))
	for i := range buyerTx.TxIn {
		signIndexes[i] = bitcoin.SignIndex{Index: i, SighashType: txbuilder.PaymentSigHashType}
		if i >= txbuilder.SellerInputIndex && i < txbuilder.SellerInputIndex+sellerInputs {
			signIndexes[i].SighashType = txbuilder.SellerSigHashType
		}
	}

	if err = verifier.VerifySignedInputs(buyerPacket, signIndexes); err != nil {
		return nil, err
	}

	if err = psbt.MaybeFinalizeAll(buyerPacket); err != nil {
		return nil, errors.Join(bitcoin.ErrInvalidSignature, err)
	}

	return psbt.Extract(buyerPacket)
}

// MergeToHex merges PSBTs and returns hex encoded raw transaction ready to be broadcast.
func MergeToHex(sellerSignedPSBT, buyerSignedPSBT []byte) (string, error) {
	tx, err := Merge(sellerSignedPSBT, buyerSignedPSBT)
	if err != nil {
		return "", err
	}

	w := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	if err = tx.Serialize(w); err != nil {
		return "", err
	}

	return hex.EncodeToString(w.Bytes()), nil
}

func copyTxIn(in *wire.TxIn) *wire.TxIn {
	return &wire.TxIn{
		PreviousOutPoint: in.PreviousOutPoint,
		SignatureScript:  in.SignatureScript,
		Witness:          in.Witness,
		Sequence:         in.Sequence,
	}
}
