// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/utils"
)

var (
	// ErrPSBTInputBuilder defines errors class for psbt input preparation.
	ErrPSBTInputBuilder = errors.New("prepare psbt input")
	// ErrPrevTxFetcherRequired defines that legacy input can not be built without previous transaction source.
	ErrPrevTxFetcherRequired = errors.New("previous transaction fetcher is required for legacy inputs")
	// ErrPublicKeyRequired defines that address type requires the public key to build the input.
	ErrPublicKeyRequired = errors.New("public key is required")
)

// PrevTxFetcher provides full previous transactions which legacy inputs commit to.
type PrevTxFetcher interface {
	FetchPrevTx(ctx context.Context, txHash string) (*wire.MsgTx, error)
}

// InputDescriptor describes the input with all data the signer needs.
type InputDescriptor struct {
	OutPoint           wire.OutPoint
	Kind               AddressKind
	WitnessUTXO        *wire.TxOut
	NonWitnessUTXO     *wire.MsgTx
	RedeemScript       []byte
	TaprootInternalKey []byte
	SighashType        txscript.SigHashType
}

// TxIn returns unsigned transaction input spending described outpoint.
func (d *InputDescriptor) TxIn() *wire.TxIn {
	outPoint := d.OutPoint
	return wire.NewTxIn(&outPoint, nil, nil)
}

// PrepareInput updates psbt input with the descriptor data.
func (d *InputDescriptor) PrepareInput(input *psbt.PInput) {
	input.SighashType = d.SighashType
	input.WitnessUtxo = d.WitnessUTXO
	input.NonWitnessUtxo = d.NonWitnessUTXO
	input.RedeemScript = d.RedeemScript
	input.TaprootInternalKey = d.TaprootInternalKey
}

// PSBTInputBuilder is a helping tool to prepare psbt inputs of the party based on its address type.
type PSBTInputBuilder struct {
	params        *chaincfg.Params
	kind          AddressKind
	address       btcutil.Address
	pkScript      []byte
	xOnlyPubKey   []byte
	redeemScript  []byte
	prevTxFetcher PrevTxFetcher
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
func NewPSBTInputBuilder(pubKey, address string, networkParams *chaincfg.Params, prevTxFetcher PrevTxFetcher) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams, prevTxFetcher: prevTxFetcher}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	pib.kind, pib.address, err = DecodeAddress(address, networkParams)
	if err != nil {
		return pib, err
	}

	pib.pkScript, err = txscript.PayToAddrScript(pib.address)
	if err != nil {
		return pib, err
	}

	var publicKeyBytes []byte
	if pubKey != "" {
		publicKeyBytes, err = hex.DecodeString(pubKey)
		if err != nil {
			return pib, err
		}
	}

	switch pib.kind.Script {
	case P2TR:
		if len(publicKeyBytes) == 0 {
			return pib, ErrPublicKeyRequired
		}

		pib.xOnlyPubKey, err = utils.XOnlyPubKey(publicKeyBytes)
		if err != nil {
			return pib, err
		}
	case P2SH:
		if len(publicKeyBytes) == 0 {
			return pib, ErrPublicKeyRequired
		}

		pib.redeemScript, err = utils.NestedWitnessPubKeyHashRedeemScript(publicKeyBytes)
		if err != nil {
			return pib, err
		}
	}

	if (pib.kind.Script == P2PKH || pib.kind.Script == P2SH) && pib.prevTxFetcher == nil {
		return pib, ErrPrevTxFetcherRequired
	}

	return pib, nil
}

// BuildInput returns descriptor of the input spending the utxo owned by the builder address.
func (pib *PSBTInputBuilder) BuildInput(ctx context.Context, utxo bitcoin.UTXO, sighashType txscript.SigHashType) (*InputDescriptor, error) {
	hash, err := chainhash.NewHashFromStr(utxo.TxHash)
	if err != nil {
		return nil, fmt.Errorf("%w: tx hash %q: %v", bitcoin.ErrInvalidInput, utxo.TxHash, err)
	}

	descriptor := &InputDescriptor{
		OutPoint:    *wire.NewOutPoint(hash, utxo.Index),
		Kind:        pib.kind,
		SighashType: sighashType,
	}

	switch pib.kind.Script {
	case P2TR:
		descriptor.WitnessUTXO = wire.NewTxOut(utxo.Amount, pib.pkScript)
		descriptor.TaprootInternalKey = pib.xOnlyPubKey
	case P2WPKH:
		descriptor.WitnessUTXO = wire.NewTxOut(utxo.Amount, pib.pkScript)
	case P2SH:
		descriptor.WitnessUTXO = wire.NewTxOut(utxo.Amount, pib.pkScript)
		descriptor.RedeemScript = pib.redeemScript
		descriptor.NonWitnessUTXO, err = pib.fetchPrevTx(ctx, hash, utxo)
	case P2PKH:
		descriptor.NonWitnessUTXO, err = pib.fetchPrevTx(ctx, hash, utxo)
	default:
		return nil, bitcoin.ErrUnsupportedAddress
	}
	if err != nil {
		return nil, err
	}

	return descriptor, nil
}

// fetchPrevTx returns previous transaction and ensures it matches the utxo.
func (pib *PSBTInputBuilder) fetchPrevTx(ctx context.Context, hash *chainhash.Hash, utxo bitcoin.UTXO) (*wire.MsgTx, error) {
	prevTx, err := pib.prevTxFetcher.FetchPrevTx(ctx, utxo.TxHash)
	if err != nil {
		return nil, fmt.Errorf("fetch previous transaction %s: %w", utxo.TxHash, err)
	}

	if prevTx.TxHash() != *hash {
		return nil, fmt.Errorf("%w: previous transaction hash %s mismatch", bitcoin.ErrInvalidInput, utxo.TxHash)
	}

	if int(utxo.Index) >= len(prevTx.TxOut) {
		return nil, fmt.Errorf("%w: previous transaction %s has no output %d", bitcoin.ErrInvalidInput, utxo.TxHash, utxo.Index)
	}

	prevOut := prevTx.TxOut[utxo.Index]
	if prevOut.Value != utxo.Amount {
		return nil, fmt.Errorf("%w: utxo %s:%d value mismatch", bitcoin.ErrInvalidInput, utxo.TxHash, utxo.Index)
	}

	if !bytes.Equal(prevOut.PkScript, pib.pkScript) {
		return nil, fmt.Errorf("%w: utxo %s:%d is not locked by %s", bitcoin.ErrInvalidInput, utxo.TxHash, utxo.Index, pib.address)
	}

	return prevTx, nil
}

// Kind returns address kind of the builder.
func (pib *PSBTInputBuilder) Kind() AddressKind {
	return pib.kind
}

// PkScript returns locking script of the builder address.
func (pib *PSBTInputBuilder) PkScript() []byte {
	return pib.pkScript
}
