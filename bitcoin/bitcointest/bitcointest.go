// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package bitcointest provides deterministic wallets and in-memory chain data for tests.
package bitcointest

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/utils"
)

// ErrTxNotFound defines that transaction is unknown to PrevTxs.
var ErrTxNotFound = errors.New("transaction not found")

// Wallet describes deterministic key with addresses of every supported type.
type Wallet struct {
	PrivateKey *btcec.PrivateKey
	Params     *chaincfg.Params
}

// NewWallet returns wallet with private key made of repeated seed byte.
func NewWallet(seed byte, params *chaincfg.Params) *Wallet {
	privateKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))

	return &Wallet{PrivateKey: privateKey, Params: params}
}

// PubKeyHex returns compressed public key in hex.
func (w *Wallet) PubKeyHex() string {
	return hex.EncodeToString(w.PrivateKey.PubKey().SerializeCompressed())
}

// Address returns wallet address of provided script kind.
func (w *Wallet) Address(kind txbuilder.ScriptKind) string {
	var address btcutil.Address
	switch kind {
	case txbuilder.P2TR:
		address = utils.MustTaprootKeyPathAddress(w.Params, w.PrivateKey.PubKey())
	case txbuilder.P2WPKH:
		address = utils.MustWitnessPubKeyHashAddress(w.Params, w.PrivateKey.PubKey())
	case txbuilder.P2SH:
		address = utils.MustNestedWitnessPubKeyHashAddress(w.Params, w.PrivateKey.PubKey())
	case txbuilder.P2PKH:
		address = utils.MustPubKeyHashAddress(w.Params, w.PrivateKey.PubKey())
	default:
		panic("unsupported script kind")
	}

	return address.EncodeAddress()
}

// PkScript returns locking script of the wallet address of provided script kind.
func (w *Wallet) PkScript(kind txbuilder.ScriptKind) []byte {
	address, err := btcutil.DecodeAddress(w.Address(kind), w.Params)
	if err != nil {
		panic(err)
	}

	script, err := txscript.PayToAddrScript(address)
	if err != nil {
		panic(err)
	}

	return script
}

// Party returns trade party owning utxos of provided kind and receiving to the P2WPKH address.
func (w *Wallet) Party(kind txbuilder.ScriptKind, serviceFeeRate string, networkFeeRate *int64) bitcoin.Party {
	return bitcoin.Party{
		PublicKey:      w.PubKeyHex(),
		Address:        w.Address(kind),
		ReceiveAddress: w.Address(txbuilder.P2WPKH),
		ServiceFeeRate: decimal.RequireFromString(serviceFeeRate),
		NetworkFeeRate: networkFeeRate,
	}
}

// Int64 returns pointer to the value.
func Int64(v int64) *int64 {
	return &v
}

// PrevTxs is in-memory source of previous transactions, safe for concurrent use.
type PrevTxs struct {
	mu      sync.Mutex
	txs     map[string]*wire.MsgTx
	counter uint32
}

// NewPrevTxs is a constructor for PrevTxs.
func NewPrevTxs() *PrevTxs {
	return &PrevTxs{txs: make(map[string]*wire.MsgTx)}
}

// Fund stores transaction paying values to the script and returns its outputs as utxos.
func (p *PrevTxs) Fund(pkScript []byte, values ...int64) []bitcoin.UTXO {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counter++
	seed := binary.BigEndian.AppendUint32(nil, p.counter)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), seed, nil))
	for _, value := range values {
		tx.AddTxOut(wire.NewTxOut(value, pkScript))
	}

	txHash := tx.TxHash().String()
	p.txs[txHash] = tx

	utxos := make([]bitcoin.UTXO, len(values))
	for i, value := range values {
		utxos[i] = bitcoin.UTXO{TxHash: txHash, Index: uint32(i), Amount: value}
	}

	return utxos
}

// Add stores provided transaction.
func (p *PrevTxs) Add(tx *wire.MsgTx) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs[tx.TxHash().String()] = tx.Copy()
}

// FetchPrevTx returns copy of the stored transaction.
func (p *PrevTxs) FetchPrevTx(_ context.Context, txHash string) (*wire.MsgTx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, ok := p.txs[txHash]
	if !ok {
		return nil, ErrTxNotFound
	}

	return tx.Copy(), nil
}

// TokenUTXOs links every utxo with provided token ids.
func TokenUTXOs(utxos []bitcoin.UTXO, tokenIDs ...string) []bitcoin.TokenUTXO {
	tokenUTXOs := make([]bitcoin.TokenUTXO, len(utxos))
	for i, utxo := range utxos {
		tokenUTXOs[i] = bitcoin.TokenUTXO{UTXO: utxo, TokenIDs: tokenIDs}
	}

	return tokenUTXOs
}
