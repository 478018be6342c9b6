// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/bitcointest"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

func TestResolveAddress(t *testing.T) {
	tests := []struct {
		address string
		kind    txbuilder.AddressKind
		err     error
	}{
		{"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", txbuilder.AddressKind{Script: txbuilder.P2WPKH, Network: txbuilder.Mainnet}, nil},
		{"BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", txbuilder.AddressKind{Script: txbuilder.P2WPKH, Network: txbuilder.Mainnet}, nil},
		{"bc1p5d7rjq7g6rdk2yhzks9smlaqtedr4dekq08ge8ztwac72sfr9rusxg3297", txbuilder.AddressKind{Script: txbuilder.P2TR, Network: txbuilder.Mainnet}, nil},
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", txbuilder.AddressKind{Script: txbuilder.P2PKH, Network: txbuilder.Mainnet}, nil},
		{"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", txbuilder.AddressKind{Script: txbuilder.P2SH, Network: txbuilder.Mainnet}, nil},
		{"tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", txbuilder.AddressKind{Script: txbuilder.P2WPKH, Network: txbuilder.Testnet}, nil},
		{"tb1p000", txbuilder.AddressKind{Script: txbuilder.P2TR, Network: txbuilder.Testnet}, nil},
		{"mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", txbuilder.AddressKind{Script: txbuilder.P2PKH, Network: txbuilder.Testnet}, nil},
		{"n3GNqMveyvaPvUbH469vDRadqpJMPc84JA", txbuilder.AddressKind{Script: txbuilder.P2PKH, Network: txbuilder.Testnet}, nil},
		{"2MzQwSSnBHWHqSAqtTVQ6v47XtaisrJa1Vc", txbuilder.AddressKind{Script: txbuilder.P2SH, Network: txbuilder.Testnet}, nil},
		{"bcrt1qabc", txbuilder.AddressKind{Script: txbuilder.P2WPKH, Network: txbuilder.Regtest}, nil},
		{"bcrt1pabc", txbuilder.AddressKind{Script: txbuilder.P2TR, Network: txbuilder.Regtest}, nil},
		{"", txbuilder.AddressKind{}, bitcoin.ErrUnsupportedAddress},
		{"bc1zw508d6qejxtdg4y5r3zarvaryvg6kdaj", txbuilder.AddressKind{}, bitcoin.ErrUnsupportedAddress},
		{"ltc1qw508d6qejxtdg4y5r3zarvary0c5xw7kgmn4n9", txbuilder.AddressKind{}, bitcoin.ErrUnsupportedAddress},
		{"M8T1B2Z97gVdvmfkQcAtYbEepune1tzGua", txbuilder.AddressKind{}, bitcoin.ErrUnsupportedAddress},
		{"0xdeadbeef", txbuilder.AddressKind{}, bitcoin.ErrUnsupportedAddress},
	}
	for _, test := range tests {
		kind, err := txbuilder.ResolveAddress(test.address)
		require.ErrorIs(t, err, test.err, test.address)
		require.Equal(t, test.kind, kind, test.address)
	}
}

func TestDecodeAddress(t *testing.T) {
	regtestWallet := bitcointest.NewWallet(0x05, &chaincfg.RegressionNetParams)

	tests := []struct {
		address string
		params  *chaincfg.Params
		script  txbuilder.ScriptKind
		err     error
	}{
		{sellerWallet.Address(txbuilder.P2WPKH), testParams, txbuilder.P2WPKH, nil},
		{sellerWallet.Address(txbuilder.P2TR), testParams, txbuilder.P2TR, nil},
		{sellerWallet.Address(txbuilder.P2SH), testParams, txbuilder.P2SH, nil},
		{sellerWallet.Address(txbuilder.P2PKH), testParams, txbuilder.P2PKH, nil},
		{regtestWallet.Address(txbuilder.P2WPKH), &chaincfg.RegressionNetParams, txbuilder.P2WPKH, nil},
		{regtestWallet.Address(txbuilder.P2PKH), &chaincfg.RegressionNetParams, txbuilder.P2PKH, nil},
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", &chaincfg.MainNetParams, txbuilder.P2PKH, nil},
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", testParams, txbuilder.P2PKH, bitcoin.ErrUnsupportedAddress},
		{sellerWallet.Address(txbuilder.P2WPKH), &chaincfg.MainNetParams, txbuilder.P2WPKH, bitcoin.ErrUnsupportedAddress},
		{regtestWallet.Address(txbuilder.P2WPKH), testParams, txbuilder.P2WPKH, bitcoin.ErrUnsupportedAddress},
		// P2WSH under P2WPKH prefix.
		{"bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.MainNetParams, txbuilder.P2WPKH, bitcoin.ErrUnsupportedAddress},
		{"tb1p000", testParams, txbuilder.P2TR, bitcoin.ErrUnsupportedAddress},
	}
	for _, test := range tests {
		kind, address, err := txbuilder.DecodeAddress(test.address, test.params)
		require.ErrorIs(t, err, test.err, test.address)
		require.Equal(t, test.script, kind.Script, test.address)
		if test.err == nil {
			require.Equal(t, test.address, address.EncodeAddress())
		}
	}
}
