// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/arc20-psbt/bitcoin/bitcointest"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/signer"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

func TestSigner(t *testing.T) {
	var (
		ctx     = context.Background()
		params  = &chaincfg.MainNetParams
		s       = signer.NewSigner()
		wallet  = bitcointest.NewWallet(0x07, params)
		other   = bitcointest.NewWallet(0x08, params)
		prevTxs = bitcointest.NewPrevTxs()
	)

	unsignedPSBT := func(t *testing.T, kind txbuilder.ScriptKind, sigHashType txscript.SigHashType) []byte {
		utxos := prevTxs.Fund(wallet.PkScript(kind), 43000)
		builder, err := txbuilder.NewPSBTInputBuilder(wallet.PubKeyHex(), wallet.Address(kind), params, prevTxs)
		require.NoError(t, err)

		descriptor, err := builder.BuildInput(ctx, utxos[0], sigHashType)
		require.NoError(t, err)

		tx := wire.NewMsgTx(2)
		tx.AddTxIn(descriptor.TxIn())
		tx.AddTxOut(wire.NewTxOut(42000, other.PkScript(txbuilder.P2TR)))

		packet, err := psbt.NewFromUnsignedTx(tx)
		require.NoError(t, err)
		descriptor.PrepareInput(&packet.Inputs[0])

		packetBytes := bytes.NewBuffer(nil)
		require.NoError(t, packet.Serialize(packetBytes))

		return packetBytes.Bytes()
	}

	kinds := []txbuilder.ScriptKind{txbuilder.P2TR, txbuilder.P2WPKH, txbuilder.P2SH, txbuilder.P2PKH}
	sigHashTypes := []txscript.SigHashType{txbuilder.PaymentSigHashType, txbuilder.SellerSigHashType}
	for _, kind := range kinds {
		for _, sigHashType := range sigHashTypes {
			t.Run(fmt.Sprintf("%s 0x%02x", kind, byte(sigHashType)), func(t *testing.T) {
				signedPSBTBytes, err := s.Sign(signer.SignParams{
					SerializedPSBT: unsignedPSBT(t, kind, sigHashType),
					Inputs:         []int{0},
					PrivateKey:     wallet.PrivateKey,
				})
				require.NoError(t, err)

				signedPSBT, err := psbt.NewFromRawBytes(bytes.NewReader(signedPSBTBytes), false)
				require.NoError(t, err)
				if kind == txbuilder.P2TR {
					require.Len(t, signedPSBT.Inputs[0].TaprootKeySpendSig, 65)
					require.Equal(t, byte(sigHashType), signedPSBT.Inputs[0].TaprootKeySpendSig[64])
				} else {
					require.Len(t, signedPSBT.Inputs[0].PartialSigs, 1)
				}

				require.NoError(t, psbt.MaybeFinalizeAll(signedPSBT))

				signedTx, err := psbt.Extract(signedPSBT)
				require.NoError(t, err)

				prevFetcher, err := txbuilder.PrevOutputFetcher(signedPSBT)
				require.NoError(t, err)
				prevOut := prevFetcher.FetchPrevOutput(signedTx.TxIn[0].PreviousOutPoint)
				sigHashes := txscript.NewTxSigHashes(signedTx, prevFetcher)

				vm, err := txscript.NewEngine(
					prevOut.PkScript, signedTx, 0, txscript.StandardVerifyFlags,
					nil, sigHashes, prevOut.Value, prevFetcher,
				)
				require.NoError(t, err)
				require.NoError(t, vm.Execute())
			})
		}
	}

	t.Run("errors", func(t *testing.T) {
		for _, kind := range kinds {
			_, err := s.Sign(signer.SignParams{
				SerializedPSBT: unsignedPSBT(t, kind, txbuilder.PaymentSigHashType),
				Inputs:         []int{0},
				PrivateKey:     other.PrivateKey,
			})
			require.ErrorIs(t, err, signer.ErrKeyMismatch, kind.String())
		}

		_, err := s.Sign(signer.SignParams{
			SerializedPSBT: unsignedPSBT(t, txbuilder.P2WPKH, txbuilder.PaymentSigHashType),
			Inputs:         []int{1},
			PrivateKey:     wallet.PrivateKey,
		})
		require.ErrorIs(t, err, signer.ErrInvalidInputIndex)

		_, err = s.Sign(signer.SignParams{SerializedPSBT: []byte("psbt"), PrivateKey: wallet.PrivateKey})
		require.Error(t, err)
	})
}
