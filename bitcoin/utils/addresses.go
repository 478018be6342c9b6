// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// NewTaprootKeyPathAddress generates taproot address spendable by the key path only (BIP86 tweak without script root).
func NewTaprootKeyPathAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) (*btcutil.AddressTaproot, error) {
	outputKey := txscript.ComputeTaprootKeyNoScript(publicKey)

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}

// MustTaprootKeyPathAddress uses NewTaprootKeyPathAddress, panics in case of error.
func MustTaprootKeyPathAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) *btcutil.AddressTaproot {
	address, err := NewTaprootKeyPathAddress(chainParams, publicKey)
	if err != nil {
		panic(err)
	}

	return address
}

// NewWitnessPubKeyHashAddress generates native segwit v0 address of the public key.
func NewWitnessPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) (*btcutil.AddressWitnessPubKeyHash, error) {
	return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), chainParams)
}

// MustWitnessPubKeyHashAddress uses NewWitnessPubKeyHashAddress, panics in case of error.
func MustWitnessPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) *btcutil.AddressWitnessPubKeyHash {
	address, err := NewWitnessPubKeyHashAddress(chainParams, publicKey)
	if err != nil {
		panic(err)
	}

	return address
}

// NewNestedWitnessPubKeyHashAddress generates P2SH address wrapping P2WPKH script of the public key.
func NewNestedWitnessPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) (*btcutil.AddressScriptHash, error) {
	redeemScript, err := NestedWitnessPubKeyHashRedeemScript(publicKey.SerializeCompressed())
	if err != nil {
		return nil, err
	}

	return btcutil.NewAddressScriptHash(redeemScript, chainParams)
}

// MustNestedWitnessPubKeyHashAddress uses NewNestedWitnessPubKeyHashAddress, panics in case of error.
func MustNestedWitnessPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) *btcutil.AddressScriptHash {
	address, err := NewNestedWitnessPubKeyHashAddress(chainParams, publicKey)
	if err != nil {
		panic(err)
	}

	return address
}

// NewPubKeyHashAddress generates legacy address of the public key.
func NewPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) (*btcutil.AddressPubKeyHash, error) {
	return btcutil.NewAddressPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), chainParams)
}

// MustPubKeyHashAddress uses NewPubKeyHashAddress, panics in case of error.
func MustPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) *btcutil.AddressPubKeyHash {
	address, err := NewPubKeyHashAddress(chainParams, publicKey)
	if err != nil {
		panic(err)
	}

	return address
}
