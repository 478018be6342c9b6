// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/shopspring/decimal"

	"github.com/BoostyLabs/arc20-psbt/internal/numbers"
)

// UTXO describes unspent transaction output data.
type UTXO struct {
	TxHash string
	Index  uint32 // output index in transaction outputs.
	Amount int64  // in Satoshi.
}

// TokenUTXO describes UTXO with linked tokens (e.g. ARC20 atomicals).
type TokenUTXO struct {
	UTXO
	TokenIDs []string
}

// CarriesOnly returns true if every token linked to the UTXO is the provided one.
// UTXO without linked tokens does not carry the token at all.
func (u TokenUTXO) CarriesOnly(tokenID string) bool {
	if len(u.TokenIDs) == 0 {
		return false
	}

	for _, id := range u.TokenIDs {
		if id != tokenID {
			return false
		}
	}

	return true
}

// Party describes one side of the trade.
type Party struct {
	PublicKey      string          // hex encoded, compressed or x-only for taproot.
	Address        string          // address which owns the UTXOs.
	ReceiveAddress string          // address which receives trade proceeds.
	ServiceFeeRate decimal.Decimal // platform service fee ratio, e.g. 0.1 for 10%.
	NetworkFeeRate *int64          // in satoshi per virtual byte, optional.
}

// Order describes listed tokens and, optionally, the buyer who fulfills the listing.
type Order struct {
	TokenID                string
	UnitPrice              int64 // in satoshi per token unit.
	ListedUTXOs            []TokenUTXO
	Seller                 Party
	PlatformReceiveAddress string
	Buyer                  *Party
	BuyerUTXOs             []UTXO
}

// TotalTokenValue returns summary value of the listed UTXOs in satoshi,
// which is also amount of token units sold.
func (o *Order) TotalTokenValue() (int64, error) {
	return totalTokenValue(o.ListedUTXOs)
}

// OrderCancellation describes listing reclaim by the seller.
type OrderCancellation struct {
	TokenID                string
	UnitPrice              int64 // in satoshi per token unit.
	ListedUTXOs            []TokenUTXO
	Seller                 Party
	SellerFundingUTXOs     []UTXO
	PlatformReceiveAddress string
}

// TotalTokenValue returns summary value of the listed UTXOs in satoshi.
func (c *OrderCancellation) TotalTokenValue() (int64, error) {
	return totalTokenValue(c.ListedUTXOs)
}

// SignIndex defines input to be signed by a party and the sighash to sign it with.
type SignIndex struct {
	Index       int
	SighashType txscript.SigHashType
}

// UnsignedPSBT describes PSBT ready to be signed by one of the parties.
type UnsignedPSBT struct {
	PSBT          []byte // serialized PSBT.
	SignIndexes   []SignIndex
	// ServiceFee is the service fee charged by this PSBT in Satoshi: seller fees for listing,
	// buyer part of the platform output for fulfillment and platform output for cancellation.
	// Fulfillment and cancellation report zero when the platform output is dust and not created.
	ServiceFee    int64
	NetworkFee    int64 // in Satoshi, zero for listing.
	EstimatedSize int64 // in vBytes, zero for listing.
}

// Base64 returns serialized PSBT in base64 encoding.
func (p *UnsignedPSBT) Base64() string {
	return base64.StdEncoding.EncodeToString(p.PSBT)
}

// Indexes returns indexes of the inputs to sign.
func (p *UnsignedPSBT) Indexes() []int {
	indexes := make([]int, len(p.SignIndexes))
	for i, signIndex := range p.SignIndexes {
		indexes[i] = signIndex.Index
	}

	return indexes
}

// SignedTrade describes order with PSBTs signed by the parties.
type SignedTrade struct {
	Order            Order
	SellerSignedPSBT []byte
	BuyerSignedPSBT  []byte // optional, not needed to verify seller side.
}

// SignedCancellation describes order cancellation with PSBT signed by the seller.
type SignedCancellation struct {
	Cancellation OrderCancellation
	SignedPSBT   []byte
}

func totalTokenValue(utxos []TokenUTXO) (int64, error) {
	amounts := make([]int64, len(utxos))
	for i, utxo := range utxos {
		amounts[i] = utxo.Amount
	}

	total, err := numbers.CheckedSum(amounts...)
	if err != nil {
		return 0, fmt.Errorf("%w: listed utxos value: %w", ErrInvalidInput, err)
	}

	return total, nil
}
