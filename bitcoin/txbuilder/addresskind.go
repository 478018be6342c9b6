// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
)

// ScriptKind defines script type over which the address is built.
type ScriptKind byte

const (
	// UnknownScript defines unsupported script type.
	UnknownScript ScriptKind = iota
	// P2PKH defines P2PKH (public key hash) script type.
	P2PKH
	// P2SH defines P2SH (script hash) script type, P2WPKH nested is the only supported redeem script.
	P2SH
	// P2WPKH defines P2WPKH (witness public key hash) script type.
	P2WPKH
	// P2TR defines P2TR (taproot) script type, key path spending only.
	P2TR
)

// String returns script kind name.
func (k ScriptKind) String() string {
	switch k {
	case P2PKH:
		return "P2PKH"
	case P2SH:
		return "P2SH"
	case P2WPKH:
		return "P2WPKH"
	case P2TR:
		return "P2TR"
	default:
		return "unknown"
	}
}

// Network defines bitcoin network the address belongs to.
type Network byte

const (
	// UnknownNetwork defines unsupported network.
	UnknownNetwork Network = iota
	// Mainnet defines bitcoin main network.
	Mainnet
	// Testnet defines bitcoin test networks. Base58 regtest addresses share testnet prefixes.
	Testnet
	// Regtest defines bitcoin regression test network.
	Regtest
)

// String returns network name.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Regtest:
		return "regtest"
	default:
		return "unknown"
	}
}

// AddressKind defines script type and network of the address.
type AddressKind struct {
	Script  ScriptKind
	Network Network
}

type addressPrefix struct {
	prefix string
	kind   AddressKind
}

// bech32Prefixes are matched case-insensitively, regtest goes first as "bcrt1" is not "bc1".
var bech32Prefixes = []addressPrefix{
	{"bcrt1q", AddressKind{P2WPKH, Regtest}},
	{"bcrt1p", AddressKind{P2TR, Regtest}},
	{"bc1q", AddressKind{P2WPKH, Mainnet}},
	{"bc1p", AddressKind{P2TR, Mainnet}},
	{"tb1q", AddressKind{P2WPKH, Testnet}},
	{"tb1p", AddressKind{P2TR, Testnet}},
}

var base58Prefixes = []addressPrefix{
	{"1", AddressKind{P2PKH, Mainnet}},
	{"3", AddressKind{P2SH, Mainnet}},
	{"m", AddressKind{P2PKH, Testnet}},
	{"n", AddressKind{P2PKH, Testnet}},
	{"2", AddressKind{P2SH, Testnet}},
}

// ResolveAddress returns script type and network of the address based on its prefix only.
func ResolveAddress(address string) (AddressKind, error) {
	lowered := strings.ToLower(address)
	for _, p := range bech32Prefixes {
		if strings.HasPrefix(lowered, p.prefix) {
			return p.kind, nil
		}
	}

	for _, p := range base58Prefixes {
		if strings.HasPrefix(address, p.prefix) {
			return p.kind, nil
		}
	}

	return AddressKind{}, fmt.Errorf("%w: %q", bitcoin.ErrUnsupportedAddress, address)
}

// DecodeAddress resolves the address kind and decodes it for provided network.
// Returns ErrUnsupportedAddress if address belongs to another network or its
// decoded type does not match the resolved kind (e.g. P2WSH under "bc1q" prefix).
func DecodeAddress(address string, networkParams *chaincfg.Params) (AddressKind, btcutil.Address, error) {
	kind, err := ResolveAddress(address)
	if err != nil {
		return kind, nil, err
	}

	decoded, err := decodeForNet(address, networkParams)
	if err != nil {
		return kind, nil, err
	}

	var matches bool
	switch kind.Script {
	case P2PKH:
		_, matches = decoded.(*btcutil.AddressPubKeyHash)
	case P2SH:
		_, matches = decoded.(*btcutil.AddressScriptHash)
	case P2WPKH:
		_, matches = decoded.(*btcutil.AddressWitnessPubKeyHash)
	case P2TR:
		_, matches = decoded.(*btcutil.AddressTaproot)
	}
	if !matches {
		return kind, nil, fmt.Errorf("%w: %q is not %s", bitcoin.ErrUnsupportedAddress, address, kind.Script)
	}

	return kind, decoded, nil
}

// decodeForNet decodes any standard address of the network, used for outputs.
func decodeForNet(address string, networkParams *chaincfg.Params) (btcutil.Address, error) {
	decoded, err := btcutil.DecodeAddress(address, networkParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", bitcoin.ErrUnsupportedAddress, address, err)
	}

	if !decoded.IsForNet(networkParams) {
		return nil, fmt.Errorf("%w: %q is not for %s", bitcoin.ErrUnsupportedAddress, address, networkParams.Name)
	}

	return decoded, nil
}
