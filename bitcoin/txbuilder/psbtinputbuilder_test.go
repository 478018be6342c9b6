// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/bitcointest"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/utils"
)

func TestPSBTInputBuilder(t *testing.T) {
	ctx := context.Background()
	prevTxs := bitcointest.NewPrevTxs()
	pubKey := sellerWallet.PrivateKey.PubKey()

	t.Run("constructor errors", func(t *testing.T) {
		tests := []struct {
			name    string
			pubKey  string
			address string
			fetcher txbuilder.PrevTxFetcher
			err     error
		}{
			{"unsupported address", sellerWallet.PubKeyHex(), "xyz", prevTxs, bitcoin.ErrUnsupportedAddress},
			{"taproot without key", "", sellerWallet.Address(txbuilder.P2TR), prevTxs, txbuilder.ErrPublicKeyRequired},
			{"nested without key", "", sellerWallet.Address(txbuilder.P2SH), prevTxs, txbuilder.ErrPublicKeyRequired},
			{"nested with x-only key", hex.EncodeToString(pubKey.SerializeCompressed()[1:]), sellerWallet.Address(txbuilder.P2SH), prevTxs, utils.ErrInvalidPublicKey},
			{"invalid key length", "0011", sellerWallet.Address(txbuilder.P2TR), prevTxs, utils.ErrInvalidPublicKey},
			{"legacy without fetcher", sellerWallet.PubKeyHex(), sellerWallet.Address(txbuilder.P2PKH), nil, txbuilder.ErrPrevTxFetcherRequired},
			{"nested without fetcher", sellerWallet.PubKeyHex(), sellerWallet.Address(txbuilder.P2SH), nil, txbuilder.ErrPrevTxFetcherRequired},
		}
		for _, test := range tests {
			_, err := txbuilder.NewPSBTInputBuilder(test.pubKey, test.address, testParams, test.fetcher)
			require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder, test.name)
			require.ErrorIs(t, err, test.err, test.name)
		}
	})

	t.Run("taproot", func(t *testing.T) {
		for _, key := range []string{sellerWallet.PubKeyHex(), hex.EncodeToString(pubKey.SerializeCompressed()[1:])} {
			builder, err := txbuilder.NewPSBTInputBuilder(key, sellerWallet.Address(txbuilder.P2TR), testParams, nil)
			require.NoError(t, err)
			require.Equal(t, txbuilder.AddressKind{Script: txbuilder.P2TR, Network: txbuilder.Testnet}, builder.Kind())

			descriptor, err := builder.BuildInput(ctx, bitcoin.UTXO{TxHash: sellerTxHash, Index: 2, Amount: 1000}, txbuilder.SellerSigHashType)
			require.NoError(t, err)
			require.Equal(t, pubKey.SerializeCompressed()[1:], descriptor.TaprootInternalKey)
			require.EqualValues(t, 1000, descriptor.WitnessUTXO.Value)
			require.True(t, txscript.IsPayToTaproot(descriptor.WitnessUTXO.PkScript))
			require.EqualValues(t, 2, descriptor.TxIn().PreviousOutPoint.Index)

			var input psbt.PInput
			descriptor.PrepareInput(&input)
			require.Equal(t, txbuilder.SellerSigHashType, input.SighashType)
			require.Equal(t, descriptor.TaprootInternalKey, input.TaprootInternalKey)
		}
	})

	t.Run("nested segwit", func(t *testing.T) {
		utxos := prevTxs.Fund(sellerWallet.PkScript(txbuilder.P2SH), 5000)
		builder, err := txbuilder.NewPSBTInputBuilder(sellerWallet.PubKeyHex(), sellerWallet.Address(txbuilder.P2SH), testParams, prevTxs)
		require.NoError(t, err)

		descriptor, err := builder.BuildInput(ctx, utxos[0], txbuilder.PaymentSigHashType)
		require.NoError(t, err)
		require.Equal(t, btcutil.Hash160(descriptor.RedeemScript), descriptor.WitnessUTXO.PkScript[2:22])
		require.Equal(t, utxos[0].TxHash, descriptor.NonWitnessUTXO.TxHash().String())

		_, err = builder.BuildInput(ctx, prevTxs.Fund(buyerWallet.PkScript(txbuilder.P2SH), 5000)[0], txbuilder.PaymentSigHashType)
		require.ErrorIs(t, err, bitcoin.ErrInvalidInput)
	})

	t.Run("legacy previous transaction checks", func(t *testing.T) {
		utxos := prevTxs.Fund(sellerWallet.PkScript(txbuilder.P2PKH), 5000)
		builder, err := txbuilder.NewPSBTInputBuilder(sellerWallet.PubKeyHex(), sellerWallet.Address(txbuilder.P2PKH), testParams, prevTxs)
		require.NoError(t, err)

		descriptor, err := builder.BuildInput(ctx, utxos[0], txbuilder.PaymentSigHashType)
		require.NoError(t, err)
		require.Nil(t, descriptor.WitnessUTXO)
		require.EqualValues(t, 5000, descriptor.NonWitnessUTXO.TxOut[0].Value)

		tests := []struct {
			name string
			utxo bitcoin.UTXO
			err  error
		}{
			{"wrong value", bitcoin.UTXO{TxHash: utxos[0].TxHash, Index: 0, Amount: 4000}, bitcoin.ErrInvalidInput},
			{"missing output", bitcoin.UTXO{TxHash: utxos[0].TxHash, Index: 1, Amount: 5000}, bitcoin.ErrInvalidInput},
			{"unknown transaction", bitcoin.UTXO{TxHash: sellerTxHash, Index: 0, Amount: 5000}, bitcointest.ErrTxNotFound},
			{"foreign script", prevTxs.Fund(buyerWallet.PkScript(txbuilder.P2PKH), 5000)[0], bitcoin.ErrInvalidInput},
			{"other kind script", prevTxs.Fund(sellerWallet.PkScript(txbuilder.P2WPKH), 5000)[0], bitcoin.ErrInvalidInput},
		}
		for _, test := range tests {
			_, err := builder.BuildInput(ctx, test.utxo, txbuilder.PaymentSigHashType)
			require.ErrorIs(t, err, test.err, test.name)
		}
	})
}
