// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package verifier

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

// InputSignatureParams defines parameters for VerifyInputSignature.
type InputSignatureParams struct {
	Packet         *psbt.Packet // transaction the signature commits to with spent outputs data.
	SignedInput    *psbt.PInput // input carrying the signature.
	SignIndex      bitcoin.SignIndex
	PrevOutFetcher txscript.PrevOutputFetcher
	SigHashes      *txscript.TxSigHashes
}

// VerifySignedInputs verifies signatures the packet inputs carry for provided sign indexes.
func VerifySignedInputs(packet *psbt.Packet, signIndexes []bitcoin.SignIndex) error {
	prevOutFetcher, err := txbuilder.PrevOutputFetcher(packet)
	if err != nil {
		return fmt.Errorf("%w: %v", bitcoin.ErrInvalidInput, err)
	}

	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, prevOutFetcher)
	for _, signIndex := range signIndexes {
		if signIndex.Index < 0 || signIndex.Index >= len(packet.Inputs) {
			return fmt.Errorf("%w: no input #%d", bitcoin.ErrInvalidInputCount, signIndex.Index)
		}

		err = VerifyInputSignature(InputSignatureParams{
			Packet:         packet,
			SignedInput:    &packet.Inputs[signIndex.Index],
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

// VerifyInputSignature verifies input signature, its sighash type and that the signing key
// is the one committed by the spent output script. ECDSA is used for P2PKH, P2SH-P2WPKH
// and P2WPKH, BIP340 Schnorr against the output key for taproot key path.
func VerifyInputSignature(params InputSignatureParams) (err error) {
	idx := params.SignIndex.Index
	defer func() {
		if err != nil {
			err = fmt.Errorf("input #%d: %w", idx, err)
		}
	}()

	tx := params.Packet.UnsignedTx
	if idx < 0 || idx >= len(tx.TxIn) {
		return bitcoin.ErrInvalidInputCount
	}

	prevOut := params.PrevOutFetcher.FetchPrevOutput(tx.TxIn[idx].PreviousOutPoint)
	if prevOut == nil {
		return invalidSignature("unknown spent output")
	}

	pkScript := prevOut.PkScript
	switch {
	case txscript.IsPayToTaproot(pkScript):
		return verifyTaprootSignature(params, pkScript)
	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		return verifyWitnessSignature(params, pkScript, prevOut.Value)
	case txscript.IsPayToScriptHash(pkScript):
		redeemScript := params.Packet.Inputs[idx].RedeemScript
		if !txscript.IsPayToWitnessPubKeyHash(redeemScript) || !bytes.Equal(btcutil.Hash160(redeemScript), pkScript[2:22]) {
			return invalidSignature("unsupported redeem script")
		}

		return verifyWitnessSignature(params, redeemScript, prevOut.Value)
	case txscript.IsPayToPubKeyHash(pkScript):
		return verifyECDSASignature(params, pkScript[3:23], func(hashType txscript.SigHashType) ([]byte, error) {
			return txscript.CalcSignatureHash(pkScript, hashType, tx, idx)
		})
	default:
		return invalidSignature("unsupported spent output script")
	}
}

// verifyWitnessSignature verifies segwit v0 signature of the P2WPKH program.
func verifyWitnessSignature(params InputSignatureParams, witnessProgram []byte, amount int64) error {
	return verifyECDSASignature(params, witnessProgram[2:], func(hashType txscript.SigHashType) ([]byte, error) {
		return txscript.CalcWitnessSigHash(witnessProgram, params.SigHashes, hashType,
			params.Packet.UnsignedTx, params.SignIndex.Index, amount)
	})
}

// verifyECDSASignature verifies the signature made by the key with provided hash.
func verifyECDSASignature(params InputSignatureParams, pubKeyHash []byte, sigHashFn func(txscript.SigHashType) ([]byte, error)) error {
	candidates, err := ecdsaSignatures(params.SignedInput)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		if !bytes.Equal(btcutil.Hash160(candidate.PubKey), pubKeyHash) {
			continue
		}

		sig := candidate.Signature
		if len(sig) < 2 {
			return invalidSignature("signature is too short")
		}

		hashType := txscript.SigHashType(sig[len(sig)-1])
		if hashType != params.SignIndex.SighashType {
			return invalidSignature(fmt.Sprintf("sighash type 0x%02x, expected 0x%02x", byte(hashType), byte(params.SignIndex.SighashType)))
		}

		signature, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
		if err != nil {
			return invalidSignature(err.Error())
		}

		pubKey, err := btcec.ParsePubKey(candidate.PubKey)
		if err != nil {
			return invalidSignature(err.Error())
		}

		hash, err := sigHashFn(hashType)
		if err != nil {
			return err
		}

		if !signature.Verify(hash, pubKey) {
			return invalidSignature("signature verification failed")
		}

		return nil
	}

	return invalidSignature("no signature of the owner key")
}

// verifyTaprootSignature verifies taproot key path signature.
func verifyTaprootSignature(params InputSignatureParams, pkScript []byte) error {
	sig := params.SignedInput.TaprootKeySpendSig
	if len(sig) == 0 && len(params.SignedInput.FinalScriptWitness) > 0 {
		witness, err := parseWitness(params.SignedInput.FinalScriptWitness)
		if err != nil {
			return invalidSignature(err.Error())
		}

		if len(witness) == 1 {
			sig = witness[0]
		}
	}

	hashType := txscript.SigHashDefault
	switch len(sig) {
	case 0:
		return invalidSignature("missing signature")
	case schnorr.SignatureSize:
	case schnorr.SignatureSize + 1:
		hashType = txscript.SigHashType(sig[schnorr.SignatureSize])
		if hashType == txscript.SigHashDefault {
			return invalidSignature("explicit default sighash type")
		}
	default:
		return invalidSignature("unexpected signature length")
	}

	expected := params.SignIndex.SighashType
	if hashType != expected && !(hashType == txscript.SigHashDefault && expected == txscript.SigHashAll) {
		return invalidSignature(fmt.Sprintf("sighash type 0x%02x, expected 0x%02x", byte(hashType), byte(expected)))
	}

	hash, err := txscript.CalcTaprootSignatureHash(params.SigHashes, hashType,
		params.Packet.UnsignedTx, params.SignIndex.Index, params.PrevOutFetcher)
	if err != nil {
		return err
	}

	signature, err := schnorr.ParseSignature(sig[:schnorr.SignatureSize])
	if err != nil {
		return invalidSignature(err.Error())
	}

	outputKey, err := schnorr.ParsePubKey(pkScript[2:34])
	if err != nil {
		return invalidSignature(err.Error())
	}

	if !signature.Verify(hash, outputKey) {
		return invalidSignature("signature verification failed")
	}

	return nil
}

// ecdsaSignatures returns signatures with public keys from partial signatures
// or from already finalized witness or signature script.
func ecdsaSignatures(input *psbt.PInput) ([]*psbt.PartialSig, error) {
	if len(input.PartialSigs) > 0 {
		return input.PartialSigs, nil
	}

	if len(input.FinalScriptWitness) > 0 {
		witness, err := parseWitness(input.FinalScriptWitness)
		if err != nil {
			return nil, invalidSignature(err.Error())
		}

		if len(witness) == 2 {
			return []*psbt.PartialSig{{Signature: witness[0], PubKey: witness[1]}}, nil
		}
	}

	if len(input.FinalScriptSig) > 0 {
		pushes, err := txscript.PushedData(input.FinalScriptSig)
		if err != nil {
			return nil, invalidSignature(err.Error())
		}

		if len(pushes) == 2 {
			return []*psbt.PartialSig{{Signature: pushes[0], PubKey: pushes[1]}}, nil
		}
	}

	return nil, invalidSignature("missing signature")
}

// parseWitness parses serialized witness stack.
func parseWitness(serialized []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(serialized)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	if count > uint64(len(serialized)) {
		return nil, fmt.Errorf("witness items count %d is too big", count)
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, uint32(len(serialized)), "witness item")
		if err != nil {
			return nil, err
		}

		witness = append(witness, item)
	}

	return witness, nil
}

func invalidSignature(reason string) error {
	return fmt.Errorf("%w: %s", bitcoin.ErrInvalidSignature, reason)
}
