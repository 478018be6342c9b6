// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package server

import (
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

type utxo struct {
	TxID  string `json:"txid" binding:"required"`
	Vout  uint32 `json:"vout"`
	Value int64  `json:"value" binding:"gt=0,lte=2100000000000000"`
}

func (u utxo) toUTXO() bitcoin.UTXO {
	return bitcoin.UTXO{TxHash: u.TxID, Index: u.Vout, Amount: u.Value}
}

type atomical struct {
	utxo
	Atomicals []string `json:"atomicals"`
}

type userInfo struct {
	PublicKey      string          `json:"publicKey" binding:"required"`
	Address        string          `json:"address" binding:"required"`
	ReceiveAddress string          `json:"receiveAddress" binding:"required"`
	FeeRate        decimal.Decimal `json:"feeRate"`        // service fee ratio.
	NetworkFeeRate *int64          `json:"networkFeeRate"` // sat/vB.
}

func (u userInfo) toParty() (bitcoin.Party, error) {
	if u.FeeRate.IsNegative() || u.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return bitcoin.Party{}, fmt.Errorf("fee rate %s is out of [0, 1) range", u.FeeRate)
	}
	if u.NetworkFeeRate != nil && (*u.NetworkFeeRate <= 0 || *u.NetworkFeeRate > txbuilder.MaxNetworkFeeRate) {
		return bitcoin.Party{}, fmt.Errorf("network fee rate %d is out of (0, %d] range", *u.NetworkFeeRate, txbuilder.MaxNetworkFeeRate)
	}

	return bitcoin.Party{
		PublicKey:      u.PublicKey,
		Address:        u.Address,
		ReceiveAddress: u.ReceiveAddress,
		ServiceFeeRate: u.FeeRate,
		NetworkFeeRate: u.NetworkFeeRate,
	}, nil
}

type orderInfo struct {
	AtomicalID      string     `json:"atomicalId" binding:"required"`
	UnitPrice       int64      `json:"unitPrice" binding:"gt=0,lte=2100000000000000"`
	SellerAtomicals []atomical `json:"sellerAtomicals" binding:"required,dive"`
	SellerInfo      userInfo   `json:"sellerInfo"`
	BuyerUTXOs      []utxo     `json:"buyerUtxos" binding:"omitempty,dive"`
	BuyerInfo       *userInfo  `json:"buyerInfo"`
}

func (o orderInfo) toOrder(platformAddress string) (bitcoin.Order, error) {
	seller, err := o.SellerInfo.toParty()
	if err != nil {
		return bitcoin.Order{}, err
	}

	order := bitcoin.Order{
		TokenID:                o.AtomicalID,
		UnitPrice:              o.UnitPrice,
		ListedUTXOs:            toTokenUTXOs(o.SellerAtomicals),
		Seller:                 seller,
		PlatformReceiveAddress: platformAddress,
		BuyerUTXOs:             toUTXOs(o.BuyerUTXOs),
	}
	if o.BuyerInfo != nil {
		buyer, err := o.BuyerInfo.toParty()
		if err != nil {
			return bitcoin.Order{}, err
		}

		order.Buyer = &buyer
	}

	return order, nil
}

type signedOrderInfo struct {
	orderInfo
	PSBTBase64 string `json:"psbtBase64" binding:"required"`
}

type orderCancel struct {
	AtomicalID      string     `json:"atomicalId" binding:"required"`
	UnitPrice       int64      `json:"unitPrice" binding:"gt=0,lte=2100000000000000"`
	SellerAtomicals []atomical `json:"sellerAtomicals" binding:"required,dive"`
	SellerInfo      userInfo   `json:"sellerInfo"`
	SellerUTXOs     []utxo     `json:"sellerUtxos" binding:"omitempty,dive"`
}

func (o orderCancel) toCancellation(platformAddress string) (bitcoin.OrderCancellation, error) {
	seller, err := o.SellerInfo.toParty()
	if err != nil {
		return bitcoin.OrderCancellation{}, err
	}

	return bitcoin.OrderCancellation{
		TokenID:                o.AtomicalID,
		UnitPrice:              o.UnitPrice,
		ListedUTXOs:            toTokenUTXOs(o.SellerAtomicals),
		Seller:                 seller,
		SellerFundingUTXOs:     toUTXOs(o.SellerUTXOs),
		PlatformReceiveAddress: platformAddress,
	}, nil
}

type signedOrderCancel struct {
	orderCancel
	PSBTBase64 string `json:"psbtBase64" binding:"required"`
}

type psbtToMerge struct {
	SellerPSBT string `json:"sellerPsbt" binding:"required"`
	BuyerPSBT  string `json:"buyerPsbt" binding:"required"`
}

type signIndex struct {
	Index       int  `json:"index"`
	SighashType byte `json:"sighashType"`
}

// psbtToSign is the response with PSBT to be signed by one of the parties.
// SighashType and Index describe the first sign index and all indexes for wallets
// which sign every input with the same sighash.
type psbtToSign struct {
	PSBTBase64    string      `json:"psbtBase64"`
	SighashType   byte        `json:"sighashType"`
	Index         []int       `json:"index"`
	SignIndexes   []signIndex `json:"signIndexes"`
	ServiceFee    int64       `json:"serviceFee"`
	NetworkFee    int64       `json:"networkFee"`
	EstimatedSize int64       `json:"estimatedSize"`
}

func newPSBTToSign(unsigned *bitcoin.UnsignedPSBT) psbtToSign {
	resp := psbtToSign{
		PSBTBase64:    unsigned.Base64(),
		Index:         unsigned.Indexes(),
		SignIndexes:   make([]signIndex, len(unsigned.SignIndexes)),
		ServiceFee:    unsigned.ServiceFee,
		NetworkFee:    unsigned.NetworkFee,
		EstimatedSize: unsigned.EstimatedSize,
	}
	for i, index := range unsigned.SignIndexes {
		resp.SignIndexes[i] = signIndex{Index: index.Index, SighashType: byte(index.SighashType)}
	}
	if len(unsigned.SignIndexes) > 0 {
		resp.SighashType = byte(unsigned.SignIndexes[0].SighashType)
	}

	return resp
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

type extractResponse struct {
	TxHex string `json:"txHex"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toUTXOs(utxos []utxo) []bitcoin.UTXO {
	if utxos == nil {
		return nil
	}

	result := make([]bitcoin.UTXO, len(utxos))
	for i, u := range utxos {
		result[i] = u.toUTXO()
	}

	return result
}

func toTokenUTXOs(atomicals []atomical) []bitcoin.TokenUTXO {
	result := make([]bitcoin.TokenUTXO, len(atomicals))
	for i, a := range atomicals {
		result[i] = bitcoin.TokenUTXO{UTXO: a.toUTXO(), TokenIDs: a.Atomicals}
	}

	return result
}

func decodePSBT(psbtBase64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(psbtBase64)
	if err != nil {
		return nil, fmt.Errorf("psbt is not base64: %w", err)
	}

	return raw, nil
}
