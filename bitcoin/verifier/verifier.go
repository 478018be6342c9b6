// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

// ErrInvalidPSBT defines that signed PSBT could not be parsed.
var ErrInvalidPSBT = errors.New("invalid psbt")

// Verifier checks PSBTs signed by the trade parties against the expected ones
// rebuilt from the order data.
type Verifier struct {
	builder *txbuilder.TxBuilder
}

// NewVerifier is a constructor for Verifier.
func NewVerifier(builder *txbuilder.TxBuilder) *Verifier {
	return &Verifier{builder: builder}
}

// VerifySellerPSBT verifies listing PSBT signed by the seller.
func (v *Verifier) VerifySellerPSBT(ctx context.Context, order bitcoin.Order, signedPSBT []byte) error {
	expected, err := v.builder.BuildListingPSBT(ctx, order)
	if err != nil {
		return err
	}

	return Verify(expected, signedPSBT)
}

// VerifyBuyerPSBT verifies fulfillment PSBT signed by the buyer.
func (v *Verifier) VerifyBuyerPSBT(ctx context.Context, order bitcoin.Order, signedPSBT []byte) error {
	expected, err := v.builder.BuildFulfillmentPSBT(ctx, order)
	if err != nil {
		return err
	}

	return Verify(expected, signedPSBT)
}

// VerifyCancellationPSBT verifies cancellation PSBT signed by the seller.
func (v *Verifier) VerifyCancellationPSBT(ctx context.Context, cancellation bitcoin.OrderCancellation, signedPSBT []byte) error {
	expected, err := v.builder.BuildCancellationPSBT(ctx, cancellation)
	if err != nil {
		return err
	}

	return Verify(expected, signedPSBT)
}

// VerifyTrade verifies seller PSBT of the trade and buyer PSBT if present.
func (v *Verifier) VerifyTrade(ctx context.Context, trade bitcoin.SignedTrade) error {
	if err := v.VerifySellerPSBT(ctx, trade.Order, trade.SellerSignedPSBT); err != nil {
		return fmt.Errorf("seller psbt: %w", err)
	}

	if trade.BuyerSignedPSBT == nil {
		return nil
	}

	if err := v.VerifyBuyerPSBT(ctx, trade.Order, trade.BuyerSignedPSBT); err != nil {
		return fmt.Errorf("buyer psbt: %w", err)
	}

	return nil
}

// VerifyCancellation verifies signed cancellation.
func (v *Verifier) VerifyCancellation(ctx context.Context, cancellation bitcoin.SignedCancellation) error {
	return v.VerifyCancellationPSBT(ctx, cancellation.Cancellation, cancellation.SignedPSBT)
}

// Verify checks that signed PSBT has the structure of the expected one and
// carries valid signatures for every expected sign index. Sighashes are computed
// over the expected transaction, so nothing taken from the signed PSBT but
// signatures and public keys affects the result. The first failure is returned.
func Verify(expected *bitcoin.UnsignedPSBT, signedPSBT []byte) error {
	expectedPacket, err := psbt.NewFromRawBytes(bytes.NewReader(expected.PSBT), false)
	if err != nil {
		return err
	}

	signedPacket, err := psbt.NewFromRawBytes(bytes.NewReader(signedPSBT), false)
	if err != nil {
		return errors.Join(ErrInvalidPSBT, err)
	}

	if err = CompareStructure(expectedPacket, signedPacket); err != nil {
		return err
	}

	prevOutFetcher, err := txbuilder.PrevOutputFetcher(expectedPacket)
	if err != nil {
		return err
	}

	sigHashes := txscript.NewTxSigHashes(expectedPacket.UnsignedTx, prevOutFetcher)
	for _, signIndex := range expected.SignIndexes {
		err = VerifyInputSignature(InputSignatureParams{
			Packet:         expectedPacket,
			SignedInput:    &signedPacket.Inputs[signIndex.Index],
			SignIndex:      signIndex,
			PrevOutFetcher: prevOutFetcher,
			SigHashes:      sigHashes,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// CompareStructure checks that candidate transaction has the same inputs and outputs as the expected one.
func CompareStructure(expected, candidate *psbt.Packet) error {
	expectedTx, candidateTx := expected.UnsignedTx, candidate.UnsignedTx

	if len(expectedTx.TxIn) != len(candidateTx.TxIn) || len(candidate.Inputs) != len(candidateTx.TxIn) {
		return fmt.Errorf("%w: expected %d, got %d", bitcoin.ErrInvalidInputCount, len(expectedTx.TxIn), len(candidateTx.TxIn))
	}

	if len(expectedTx.TxOut) != len(candidateTx.TxOut) {
		return fmt.Errorf("%w: expected %d, got %d", bitcoin.ErrInvalidOutputCount, len(expectedTx.TxOut), len(candidateTx.TxOut))
	}

	for i, in := range expectedTx.TxIn {
		if in.PreviousOutPoint != candidateTx.TxIn[i].PreviousOutPoint {
			return fmt.Errorf("%w: input #%d spends %s, expected %s", bitcoin.ErrInvalidInput, i,
				candidateTx.TxIn[i].PreviousOutPoint, in.PreviousOutPoint)
		}
	}

	for i, out := range expectedTx.TxOut {
		if out.Value != candidateTx.TxOut[i].Value || !bytes.Equal(out.PkScript, candidateTx.TxOut[i].PkScript) {
			return fmt.Errorf("%w: output #%d", bitcoin.ErrInvalidOutput, i)
		}
	}

	return nil
}
