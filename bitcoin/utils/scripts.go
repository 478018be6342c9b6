// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// ErrInvalidPublicKey defines that public key has unexpected length or is not on the curve.
var ErrInvalidPublicKey = errors.New("invalid public key")

// XOnlyPubKey returns 32 bytes x-only form of compressed or x-only public key.
func XOnlyPubKey(publicKey []byte) ([]byte, error) {
	switch len(publicKey) {
	case btcec.PubKeyBytesLenCompressed:
		pubKey, err := btcec.ParsePubKey(publicKey)
		if err != nil {
			return nil, errors.Join(ErrInvalidPublicKey, err)
		}

		return schnorr.SerializePubKey(pubKey), nil
	case schnorr.PubKeyBytesLen:
		if _, err := schnorr.ParsePubKey(publicKey); err != nil {
			return nil, errors.Join(ErrInvalidPublicKey, err)
		}

		return append([]byte(nil), publicKey...), nil
	default:
		return nil, ErrInvalidPublicKey
	}
}

// NestedWitnessPubKeyHashRedeemScript builds P2WPKH witness program of the compressed public key
// to be used as redeem script of the P2SH wrapped segwit address.
// INFO: Script will have the next format: {OP_0 <hash160(pubKey)>}.
func NestedWitnessPubKeyHashRedeemScript(publicKey []byte) ([]byte, error) {
	if len(publicKey) != btcec.PubKeyBytesLenCompressed {
		return nil, ErrInvalidPublicKey
	}

	if _, err := btcec.ParsePubKey(publicKey); err != nil {
		return nil, errors.Join(ErrInvalidPublicKey, err)
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(publicKey)).
		Script()
}
