// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package merger_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/bitcointest"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/merger"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/signer"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

const (
	testTokenID = "9527efa43262636d8f5917fc763fbdd09333e4b387afd6d4ed7a905a127b27b4i0"

	goldenTxHash = "b6fdf8a180c35aba40714ba295f24af86d4be1041b24b0ee2e816982edcece09"
	goldenTxHex  = "02000000000102bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb0100000000ffffffff" +
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa0000000000ffffffff04" +
		"e803000000000000160014ebc0ee0b2ab9e8277a600c251475e22a3241a1c1" +
		"f00a00000000000016001479b000887626b294a914501a4cd226b58b235983" +
		"5802000000000000160014417d4be90d35363267b8f2afafc9531111c41ae4" +
		"6c98f50500000000160014ebc0ee0b2ab9e8277a600c251475e22a3241a1c1" +
		"0247304402202e545caeafdc5314e0777024188426b1e868e35ae59a8b65e645e1345c385de502205becb2a551b31cde2c5d03898cf53138f78fe95b347f81a62c5f45225909b3b501" +
		"21024d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766" +
		"024830450221009abfba0f99754e7e373a6fad26ccd59326f92df6c6f2c23015398c92e0377f730220150e0cf83c0ecafcc163008d077d3c929e4953ffabbe4d6944215ffd060a91ff83" +
		"21031b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f" +
		"00000000"
)

var (
	testParams     = &chaincfg.TestNet3Params
	sellerWallet   = bitcointest.NewWallet(0x01, testParams)
	buyerWallet    = bitcointest.NewWallet(0x02, testParams)
	platformWallet = bitcointest.NewWallet(0x03, testParams)
)

func sign(t *testing.T, unsigned *bitcoin.UnsignedPSBT, key *btcec.PrivateKey) []byte {
	signed, err := signer.NewSigner().Sign(signer.SignParams{
		SerializedPSBT: unsigned.PSBT,
		Inputs:         unsigned.Indexes(),
		PrivateKey:     key,
	})
	require.NoError(t, err)

	return signed
}

// requireValidTx executes scripts of every input of the transaction.
func requireValidTx(t *testing.T, tx *wire.MsgTx, fulfillment *bitcoin.UnsignedPSBT) {
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(fulfillment.PSBT), false)
	require.NoError(t, err)

	prevFetcher, err := txbuilder.PrevOutputFetcher(packet)
	require.NoError(t, err)

	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	for i, in := range tx.TxIn {
		prevOut := prevFetcher.FetchPrevOutput(in.PreviousOutPoint)
		require.NotNil(t, prevOut)

		vm, err := txscript.NewEngine(prevOut.PkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, prevOut.Value, prevFetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input #%d", i)
	}
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("golden", func(t *testing.T) {
		buyer := buyerWallet.Party(txbuilder.P2WPKH, "0.2", bitcointest.Int64(30))
		order := bitcoin.Order{
			TokenID:   testTokenID,
			UnitPrice: 2,
			ListedUTXOs: []bitcoin.TokenUTXO{{
				UTXO:     bitcoin.UTXO{TxHash: strings.Repeat("aa", 32), Index: 0, Amount: 1000},
				TokenIDs: []string{testTokenID},
			}},
			Seller:                 sellerWallet.Party(txbuilder.P2WPKH, "0.1", nil),
			PlatformReceiveAddress: platformWallet.Address(txbuilder.P2WPKH),
			Buyer:                  &buyer,
			BuyerUTXOs:             []bitcoin.UTXO{{TxHash: strings.Repeat("bb", 32), Index: 1, Amount: 100_000_000}},
		}
		builder := txbuilder.NewTxBuilder(txbuilder.DefaultParams(testParams), nil)

		listing, err := builder.BuildListingPSBT(ctx, order)
		require.NoError(t, err)
		fulfillment, err := builder.BuildFulfillmentPSBT(ctx, order)
		require.NoError(t, err)
		require.EqualValues(t, 15180, fulfillment.NetworkFee)
		require.EqualValues(t, 506, fulfillment.EstimatedSize)
		require.EqualValues(t, 400, fulfillment.ServiceFee)

		sellerSigned := sign(t, listing, sellerWallet.PrivateKey)
		buyerSigned := sign(t, fulfillment, buyerWallet.PrivateKey)

		rawTx, err := merger.MergeToHex(sellerSigned, buyerSigned)
		require.NoError(t, err)
		require.Equal(t, goldenTxHex, rawTx)

		tx, err := merger.Merge(sellerSigned, buyerSigned)
		require.NoError(t, err)
		require.Equal(t, goldenTxHash, tx.TxHash().String())
		requireValidTx(t, tx, fulfillment)
	})

	prevTxs := bitcointest.NewPrevTxs()
	builder := txbuilder.NewTxBuilder(txbuilder.DefaultParams(testParams), prevTxs)
	newOrder := func(sellerKind, buyerKind txbuilder.ScriptKind, listed ...int64) bitcoin.Order {
		buyer := buyerWallet.Party(buyerKind, "0.015", bitcointest.Int64(12))

		return bitcoin.Order{
			TokenID:                testTokenID,
			UnitPrice:              3,
			ListedUTXOs:            bitcointest.TokenUTXOs(prevTxs.Fund(sellerWallet.PkScript(sellerKind), listed...), testTokenID),
			Seller:                 sellerWallet.Party(sellerKind, "0.02", nil),
			PlatformReceiveAddress: platformWallet.Address(txbuilder.P2TR),
			Buyer:                  &buyer,
			BuyerUTXOs:             prevTxs.Fund(buyerWallet.PkScript(buyerKind), 4000, 9000, 30_000),
		}
	}

	signedPair := func(t *testing.T, order bitcoin.Order) (sellerSigned, buyerSigned []byte, fulfillment *bitcoin.UnsignedPSBT) {
		listing, err := builder.BuildListingPSBT(ctx, order)
		require.NoError(t, err)
		fulfillment, err = builder.BuildFulfillmentPSBT(ctx, order)
		require.NoError(t, err)

		return sign(t, listing, sellerWallet.PrivateKey), sign(t, fulfillment, buyerWallet.PrivateKey), fulfillment
	}

	sellerKinds := []txbuilder.ScriptKind{txbuilder.P2TR, txbuilder.P2WPKH, txbuilder.P2SH}
	buyerKinds := []txbuilder.ScriptKind{txbuilder.P2TR, txbuilder.P2WPKH, txbuilder.P2SH, txbuilder.P2PKH}
	for _, sellerKind := range sellerKinds {
		for _, buyerKind := range buyerKinds {
			t.Run(fmt.Sprintf("seller %s buyer %s", sellerKind, buyerKind), func(t *testing.T) {
				order := newOrder(sellerKind, buyerKind, 1000, 5000)
				sellerSigned, buyerSigned, fulfillment := signedPair(t, order)

				tx, err := merger.Merge(sellerSigned, buyerSigned)
				require.NoError(t, err)
				requireValidTx(t, tx, fulfillment)

				packet, err := psbt.NewFromRawBytes(bytes.NewReader(fulfillment.PSBT), false)
				require.NoError(t, err)
				require.Equal(t, len(packet.UnsignedTx.TxIn), len(tx.TxIn))
				for i, in := range packet.UnsignedTx.TxIn {
					require.Equal(t, in.PreviousOutPoint, tx.TxIn[i].PreviousOutPoint)
				}
				require.Equal(t, packet.UnsignedTx.TxOut, tx.TxOut)
			})
		}
	}

	t.Run("legacy seller signature does not survive reindexing", func(t *testing.T) {
		sellerSigned, buyerSigned, _ := signedPair(t, newOrder(txbuilder.P2PKH, txbuilder.P2WPKH, 1000))

		_, err := merger.Merge(sellerSigned, buyerSigned)
		require.ErrorIs(t, err, bitcoin.ErrInvalidSignature)
		require.ErrorIs(t, err, merger.ErrMerger)
	})

	t.Run("errors", func(t *testing.T) {
		order := newOrder(txbuilder.P2WPKH, txbuilder.P2TR, 1000)
		sellerSigned, buyerSigned, fulfillment := signedPair(t, order)

		otherSellerSigned, _, _ := signedPair(t, newOrder(txbuilder.P2WPKH, txbuilder.P2TR, 1000))
		_, err := merger.Merge(otherSellerSigned, buyerSigned)
		require.ErrorIs(t, err, bitcoin.ErrInvalidInput)

		bigSellerSigned, _, _ := signedPair(t, newOrder(txbuilder.P2WPKH, txbuilder.P2TR, 1000, 2000, 3000, 4000))
		_, err = merger.Merge(bigSellerSigned, buyerSigned)
		require.ErrorIs(t, err, bitcoin.ErrInvalidInputCount)

		_, err = merger.Merge(sellerSigned, fulfillment.PSBT)
		require.ErrorIs(t, err, bitcoin.ErrInvalidSignature)

		listing, err := builder.BuildListingPSBT(ctx, order)
		require.NoError(t, err)
		_, err = merger.Merge(listing.PSBT, buyerSigned)
		require.ErrorIs(t, err, bitcoin.ErrInvalidSignature)

		code, ok := bitcoin.CodeOf(err)
		require.True(t, ok)
		require.Equal(t, bitcoin.CodeInvalidSignature, code)

		_, err = merger.Merge([]byte("psbt"), buyerSigned)
		require.ErrorIs(t, err, merger.ErrMerger)

		_, err = merger.MergeToHex(sellerSigned, []byte("psbt"))
		require.ErrorIs(t, err, merger.ErrMerger)
	})
}
