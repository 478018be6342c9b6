// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

func TestInputsHelpingKey(t *testing.T) {
	t.Run("InputsHelpingKeyFromBytes", func(t *testing.T) {
		tests := []struct {
			bytes []byte
			key   txbuilder.InputsHelpingKey
			err   error
		}{
			{[]byte{txbuilder.SellerInputsHelpingKey.Byte()}, txbuilder.SellerInputsHelpingKey, nil},
			{[]byte{txbuilder.BuyerInputsHelpingKey.Byte()}, txbuilder.BuyerInputsHelpingKey, nil},
			{[]byte{}, 0, txbuilder.ErrUnknownInputsHelpingKey},
			{[]byte{0x11}, 0, txbuilder.ErrUnknownInputsHelpingKey},
			{[]byte{0x10, 0x20}, 0, txbuilder.ErrUnknownInputsHelpingKey},
		}
		for _, test := range tests {
			key, err := txbuilder.InputsHelpingKeyFromBytes(test.bytes)
			require.Equal(t, test.err, err)
			require.Equal(t, test.key, key)
		}
	})

	t.Run("seller and buyer keys", func(t *testing.T) {
		require.NotEqual(t, txbuilder.SellerInputsHelpingKey, txbuilder.BuyerInputsHelpingKey)

		for _, key := range []txbuilder.InputsHelpingKey{txbuilder.SellerInputsHelpingKey, txbuilder.BuyerInputsHelpingKey} {
			parsed, err := txbuilder.InputsHelpingKeyFromBytes(key.Bytes())
			require.NoError(t, err)
			require.Equal(t, key, parsed)
		}

		ctx := context.Background()
		txBuilder := txbuilder.NewTxBuilder(txbuilder.DefaultParams(testParams), nil)
		order := testOrder()
		order.BuyerUTXOs = []bitcoin.UTXO{
			{TxHash: buyerTxHash, Index: 1, Amount: 10_000},
			{TxHash: buyerTxHash, Index: 2, Amount: 30_000},
		}

		listing, err := txBuilder.BuildListingPSBT(ctx, order)
		require.NoError(t, err)
		indexes, err := txbuilder.ExtractSignIndexesFromPSBT(listing.PSBT)
		require.NoError(t, err)
		require.Equal(t, map[txbuilder.InputsHelpingKey][]int{txbuilder.SellerInputsHelpingKey: {0}}, indexes)

		fulfillment, err := txBuilder.BuildFulfillmentPSBT(ctx, order)
		require.NoError(t, err)
		indexes, err = txbuilder.ExtractSignIndexesFromPSBT(fulfillment.PSBT)
		require.NoError(t, err)
		require.NotContains(t, indexes, txbuilder.SellerInputsHelpingKey)
		require.NotContains(t, indexes[txbuilder.BuyerInputsHelpingKey], txbuilder.SellerInputIndex)
		require.Equal(t, []int{0, 2}, indexes[txbuilder.BuyerInputsHelpingKey])
		require.Equal(t, fulfillment.Indexes(), indexes[txbuilder.BuyerInputsHelpingKey])
	})

	t.Run("Byte&Bytes", func(t *testing.T) {
		tests := []struct {
			key   txbuilder.InputsHelpingKey
			byte  byte
			bytes []byte
		}{
			{txbuilder.SellerInputsHelpingKey, 0x10, []byte{0x10}},
			{txbuilder.BuyerInputsHelpingKey, 0x20, []byte{0x20}},
		}
		for _, test := range tests {
			require.Equal(t, test.byte, test.key.Byte())
			require.Equal(t, test.bytes, test.key.Bytes())
		}
	})
}
