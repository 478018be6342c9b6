// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

var (
	// ErrInvalidInputIndex defines that input to sign is out of the transaction inputs.
	ErrInvalidInputIndex = errors.New("invalid input index")
	// ErrKeyMismatch defines that private key does not own the spent output.
	ErrKeyMismatch = errors.New("private key does not match spent output")
	// ErrUnsupportedScript defines that spent output script can not be signed.
	ErrUnsupportedScript = errors.New("unsupported spent output script")
)

// SignParams defines parameters for Sign method.
type SignParams struct {
	SerializedPSBT []byte
	Inputs         []int // inputs indexes.
	PrivateKey     *btcec.PrivateKey
}

// signInputParams defines parameters for signInput method.
type signInputParams struct {
	packet       *psbt.Packet
	input        int
	inputFetcher txscript.PrevOutputFetcher
	sigHashes    *txscript.TxSigHashes
	privateKey   *btcec.PrivateKey
}

// Signer provides PSBT signing related logic, used as wallet replacement by tools and tests.
type Signer struct{}

// NewSigner is a constructor for Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign signs inputs by provided indexes according to the spent output type
// and sighash type of each input, returns updated serialized PSBT.
func (signer *Signer) Sign(params SignParams) ([]byte, error) {
	packet, err := psbt.NewFromRawBytes(bytes.NewBuffer(params.SerializedPSBT), false)
	if err != nil {
		return nil, err
	}

	prevOutputFetcher, err := txbuilder.PrevOutputFetcher(packet)
	if err != nil {
		return nil, err
	}

	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, prevOutputFetcher)
	for _, input := range params.Inputs {
		if input < 0 || len(packet.Inputs) <= input {
			return nil, ErrInvalidInputIndex
		}

		err = signer.signInput(signInputParams{
			packet:       packet,
			input:        input,
			inputFetcher: prevOutputFetcher,
			sigHashes:    sigHashes,
			privateKey:   params.PrivateKey,
		})
		if err != nil {
			return nil, err
		}
	}

	w := bytes.NewBuffer(nil)
	err = packet.Serialize(w)
	if err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// signInput signs taproot input by the key path or segwit v0 and legacy inputs by the public key hash.
func (signer *Signer) signInput(params signInputParams) error {
	var (
		tx           = params.packet.UnsignedTx
		input        = &params.packet.Inputs[params.input]
		prevOut      = params.inputFetcher.FetchPrevOutput(tx.TxIn[params.input].PreviousOutPoint)
		sigHashType  = input.SighashType
		pubKey       = params.privateKey.PubKey().SerializeCompressed()
		pubKeyHash   = btcutil.Hash160(pubKey)
		sig          []byte
		err          error
		pkScript     = prevOut.PkScript
		isTaproot    = txscript.IsPayToTaproot(pkScript)
		redeemScript = input.RedeemScript
	)

	if sigHashType == 0 && !isTaproot {
		sigHashType = txscript.SigHashAll
	}

	switch {
	case isTaproot:
		outputKey := txscript.ComputeTaprootKeyNoScript(params.privateKey.PubKey())
		if !bytes.Equal(schnorr.SerializePubKey(outputKey), pkScript[2:]) {
			return ErrKeyMismatch
		}

		witness, err := txscript.TaprootWitnessSignature(tx, params.sigHashes, params.input,
			prevOut.Value, pkScript, sigHashType, params.privateKey)
		if err != nil {
			return err
		}

		input.TaprootKeySpendSig = witness[0]

		return nil
	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		if !bytes.Equal(pkScript[2:], pubKeyHash) {
			return ErrKeyMismatch
		}

		sig, err = txscript.RawTxInWitnessSignature(tx, params.sigHashes, params.input,
			prevOut.Value, pkScript, sigHashType, params.privateKey)
	case txscript.IsPayToScriptHash(pkScript):
		if !txscript.IsPayToWitnessPubKeyHash(redeemScript) {
			return ErrUnsupportedScript
		}
		if !bytes.Equal(redeemScript[2:], pubKeyHash) || !bytes.Equal(btcutil.Hash160(redeemScript), pkScript[2:22]) {
			return ErrKeyMismatch
		}

		sig, err = txscript.RawTxInWitnessSignature(tx, params.sigHashes, params.input,
			prevOut.Value, redeemScript, sigHashType, params.privateKey)
	case txscript.IsPayToPubKeyHash(pkScript):
		if !bytes.Equal(pkScript[3:23], pubKeyHash) {
			return ErrKeyMismatch
		}

		sig, err = txscript.RawTxInSignature(tx, params.input, pkScript, sigHashType, params.privateKey)
	default:
		return ErrUnsupportedScript
	}
	if err != nil {
		return err
	}

	input.PartialSigs = append(input.PartialSigs, &psbt.PartialSig{
		PubKey:    pubKey,
		Signature: sig,
	})

	return nil
}
