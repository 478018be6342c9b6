// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/internal/numbers"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2

	// SellerSigHashType defines signature hash type of the listed inputs, it commits the seller
	// to own input and the output at the same index only, so the buyer is free to add the rest.
	SellerSigHashType = txscript.SigHashSingle | txscript.SigHashAnyOneCanPay
	// PaymentSigHashType defines signature hash type of the buyer inputs and cancellation inputs.
	PaymentSigHashType = txscript.SigHashAll

	// SellerInputIndex defines the first fulfillment input reserved for the seller listed inputs.
	// Seller input k is placed at SellerInputIndex+k with its paired output at the same index.
	SellerInputIndex = 1

	// DefaultDustThreshold defines default dust threshold in satoshi.
	DefaultDustThreshold int64 = 546

	// MaxNetworkFeeRate defines the highest accepted network fee rate in sat/vB.
	MaxNetworkFeeRate int64 = 100_000
)

// Params describes immutable settings of the TxBuilder.
type Params struct {
	Network       *chaincfg.Params
	DustThreshold int64 // in satoshi, outputs and utxos must be strictly above it.
}

// DefaultParams returns builder params for the network with default dust threshold.
func DefaultParams(network *chaincfg.Params) Params {
	return Params{Network: network, DustThreshold: DefaultDustThreshold}
}

// TxBuilder provides atomic swap PSBTs building related logic.
type TxBuilder struct {
	params        Params
	prevTxFetcher PrevTxFetcher
}

// NewTxBuilder is a constructor for TxBuilder.
// Previous transactions fetcher is needed for P2PKH and P2SH parties only, may be nil otherwise.
func NewTxBuilder(params Params, prevTxFetcher PrevTxFetcher) *TxBuilder {
	return &TxBuilder{
		params:        params,
		prevTxFetcher: prevTxFetcher,
	}
}

// Params returns settings of the builder.
func (b *TxBuilder) Params() Params {
	return b.params
}

// SellerOutputValue returns value of the output paired with listed utxo and seller service fee.
// The output returns utxo value to the seller together with the price minus floored service fee.
// Returns ErrInvalidOutput if the value is not a valid satoshi amount.
func SellerOutputValue(unitPrice, utxoValue int64, serviceFeeRate decimal.Decimal) (value, serviceFee int64, err error) {
	price, err := numbers.CheckedMul(unitPrice, utxoValue)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: price of %d sat at %d per unit: %w", bitcoin.ErrInvalidOutput, utxoValue, unitPrice, err)
	}
	serviceFee = numbers.FloorMul(price, serviceFeeRate)

	value, err = numbers.CheckedSum(price-serviceFee, utxoValue)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: seller output: %w", bitcoin.ErrInvalidOutput, err)
	}

	return value, serviceFee, nil
}

// checkNetworkFeeRate returns ErrInvalidOutput if the fee rate can't be paid by any transaction.
func checkNetworkFeeRate(satoshiPerVByte int64) error {
	if satoshiPerVByte < 0 || satoshiPerVByte > MaxNetworkFeeRate {
		return fmt.Errorf("%w: network fee rate %d sat/vB is out of [0, %d] range", bitcoin.ErrInvalidOutput, satoshiPerVByte, MaxNetworkFeeRate)
	}

	return nil
}

// checkAmounts returns ErrInvalidInput if utxos values or their sum are not valid satoshi amounts.
func checkAmounts(utxos []bitcoin.UTXO) (int64, error) {
	total, err := numbers.CheckedSum(utxosAmounts(utxos)...)
	if err != nil {
		return 0, fmt.Errorf("%w: utxos value: %w", bitcoin.ErrInvalidInput, err)
	}

	return total, nil
}

// CheckBuyer returns error if order lacks data required to fulfill it.
func CheckBuyer(order bitcoin.Order) error {
	switch {
	case order.Buyer == nil:
		return bitcoin.ErrMissingBuyerInfo
	case order.BuyerUTXOs == nil:
		return bitcoin.ErrMissingBuyerUTXO
	case order.Buyer.NetworkFeeRate == nil:
		return bitcoin.ErrMissingNetworkFeeRate
	}

	return nil
}

// BuildListingPSBT constructs PSBT with listed utxos to be signed by the seller.
//
//	Tx struct
//	inputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - k │ token inputs │ listed utxos, SINGLE|ANYONECANPAY      │
//	└─────────┴──────────────┴────────────────────────────────────────┘
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - k │ seller       │ price minus service fee plus utxo      │
//	│         │ outputs      │ value, paired with input by index.     │
//	└─────────┴──────────────┴────────────────────────────────────────┘
func (b *TxBuilder) BuildListingPSBT(ctx context.Context, order bitcoin.Order) (*bitcoin.UnsignedPSBT, error) {
	legs, err := b.buildSellerLegs(ctx, order.TokenID, order.UnitPrice, order.ListedUTXOs, order.Seller)
	if err != nil {
		return nil, err
	}

	var (
		draft       = newTxDraft()
		signIndexes = make([]bitcoin.SignIndex, 0, len(legs))
		serviceFee  int64
	)
	for _, leg := range legs {
		index := draft.addInput(leg.input)
		draft.addOutput(leg.output)
		signIndexes = append(signIndexes, bitcoin.SignIndex{Index: index, SighashType: SellerSigHashType})
		serviceFee += leg.serviceFee
	}

	serialized, err := draft.toPSBT(SellerInputsHelpingKey, signIndexes)
	if err != nil {
		return nil, err
	}

	return &bitcoin.UnsignedPSBT{
		PSBT:        serialized,
		SignIndexes: signIndexes,
		ServiceFee:  serviceFee,
	}, nil
}

// BuildFulfillmentPSBT constructs PSBT buying the listing to be signed by the buyer.
// Seller inputs and outputs are identical to the listing ones, so the seller signatures
// remain valid after the merge.
//
//	Tx struct
//	inputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│       0 │ buyer input  │ smallest utxo covering the trade.      │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│   1 - k │ token inputs │ listed utxos, signed by the seller.    │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│ k+1 - n │ buyer inputs │ optional, more utxos to cover fee.     │
//	└─────────┴──────────────┴────────────────────────────────────────┘
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│       0 │ buyer        │ tokens receive output, value equals    │
//	│         │ output       │ to listed utxos value.                 │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│   1 - k │ seller       │ same as in listing.                    │
//	│         │ outputs      │                                        │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     k+1 │ platform     │ optional, both parties service fees    │
//	│         │ output       │ if above dust.                         │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     k+2 │ change       │ optional, buyer change if above dust.  │
//	└─────────┴──────────────┴────────────────────────────────────────┘
func (b *TxBuilder) BuildFulfillmentPSBT(ctx context.Context, order bitcoin.Order) (*bitcoin.UnsignedPSBT, error) {
	if err := CheckBuyer(order); err != nil {
		return nil, err
	}
	buyer := order.Buyer

	if err := checkNetworkFeeRate(*buyer.NetworkFeeRate); err != nil {
		return nil, err
	}

	if _, err := checkAmounts(order.BuyerUTXOs); err != nil {
		return nil, err
	}

	legs, err := b.buildSellerLegs(ctx, order.TokenID, order.UnitPrice, order.ListedUTXOs, order.Seller)
	if err != nil {
		return nil, err
	}

	buyerInputBuilder, err := NewPSBTInputBuilder(buyer.PublicKey, buyer.Address, b.params.Network, b.prevTxFetcher)
	if err != nil {
		return nil, err
	}

	receiveScript, err := b.payToAddrScript(buyer.ReceiveAddress)
	if err != nil {
		return nil, err
	}

	tokenValue, err := order.TotalTokenValue()
	if err != nil {
		return nil, err
	}

	tradeValue, err := numbers.CheckedMul(order.UnitPrice, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("%w: trade value: %w", bitcoin.ErrInvalidOutput, err)
	}

	var (
		platformFee    = numbers.FloorMul(tradeValue, buyer.ServiceFeeRate.Add(order.Seller.ServiceFeeRate))
		platformScript []byte
		outputs        = 1 + len(legs)
		serviceFee     int64
		outputValues   = make([]int64, 0, len(legs)+1)
	)
	for _, leg := range legs {
		outputValues = append(outputValues, leg.output.Value)
	}

	if numbers.IsAboveDust(platformFee, b.params.DustThreshold) {
		platformScript, err = b.payToAddrScript(order.PlatformReceiveAddress)
		if err != nil {
			return nil, err
		}

		outputs++
		outputValues = append(outputValues, platformFee)
		serviceFee = numbers.FloorMul(tradeValue, buyer.ServiceFeeRate)
	}

	requiredAmount, err := numbers.CheckedSum(outputValues...)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer payment: %w", bitcoin.ErrInvalidOutput, err)
	}

	// listed utxos value passes through to the buyer receive output, so buyer pays the rest.
	usedUTXOs, fee, size, err := SelectUTXOs(order.BuyerUTXOs, requiredAmount, b.params.DustThreshold, func(selected int) (int64, int64) {
		return EstimateFee(len(legs)+selected, outputs, *buyer.NetworkFeeRate, true)
	})
	if err != nil {
		var insufficientErr *InsufficientError
		if errors.As(err, &insufficientErr) {
			insufficientErr.setCauser(CauserBuyer)
		}

		return nil, err
	}

	buyerInputs := make([]*InputDescriptor, len(usedUTXOs))
	for i, utxo := range usedUTXOs {
		buyerInputs[i], err = buyerInputBuilder.BuildInput(ctx, utxo, PaymentSigHashType)
		if err != nil {
			return nil, err
		}
	}

	var (
		draft       = newTxDraft()
		signIndexes = make([]bitcoin.SignIndex, 0, len(buyerInputs))
	)

	// buyer first input (#0) and tokens receive output (#0).
	signIndexes = append(signIndexes, bitcoin.SignIndex{Index: draft.addInput(buyerInputs[0]), SighashType: PaymentSigHashType})
	draft.addOutput(wire.NewTxOut(tokenValue, receiveScript))

	// seller pairs (#1 - #k).
	for _, leg := range legs {
		draft.addInput(leg.input)
		draft.addOutput(leg.output)
	}

	// platform output (#k+1).
	if platformScript != nil {
		draft.addOutput(wire.NewTxOut(platformFee, platformScript))
	}

	// rest of buyer inputs (#k+1 - #n).
	for _, input := range buyerInputs[1:] {
		signIndexes = append(signIndexes, bitcoin.SignIndex{Index: draft.addInput(input), SighashType: PaymentSigHashType})
	}

	// change output.
	change := numbers.Sum(utxosAmounts(usedUTXOs)...) - requiredAmount - fee
	if numbers.IsAboveDust(change, b.params.DustThreshold) {
		draft.addOutput(wire.NewTxOut(change, buyerInputBuilder.PkScript()))
	}

	serialized, err := draft.toPSBT(BuyerInputsHelpingKey, signIndexes)
	if err != nil {
		return nil, err
	}

	return &bitcoin.UnsignedPSBT{
		PSBT:          serialized,
		SignIndexes:   signIndexes,
		ServiceFee:    serviceFee,
		NetworkFee:    fee,
		EstimatedSize: size,
	}, nil
}

// BuildCancellationPSBT constructs PSBT reclaiming listed utxos to be signed by the seller.
// Spending listed utxos invalidates the listing signatures.
//
//	Tx struct
//	inputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - k │ token inputs │ listed utxos.                          │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│ k+1 - n │ fee inputs   │ seller utxos to cover fees.            │
//	└─────────┴──────────────┴────────────────────────────────────────┘
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - k │ reclaim      │ utxo value back to seller address.     │
//	│         │ outputs      │                                        │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     k+1 │ platform     │ optional, cancellation fee if above    │
//	│         │ output       │ dust.                                  │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     k+2 │ change       │ optional, seller change if above dust. │
//	└─────────┴──────────────┴────────────────────────────────────────┘
func (b *TxBuilder) BuildCancellationPSBT(ctx context.Context, cancellation bitcoin.OrderCancellation) (*bitcoin.UnsignedPSBT, error) {
	seller := cancellation.Seller
	if seller.NetworkFeeRate == nil {
		return nil, bitcoin.ErrMissingNetworkFeeRate
	}

	if err := checkNetworkFeeRate(*seller.NetworkFeeRate); err != nil {
		return nil, err
	}

	if len(cancellation.ListedUTXOs) == 0 {
		return nil, fmt.Errorf("%w: no listed utxos", bitcoin.ErrInvalidInputCount)
	}

	tokenValue, err := cancellation.TotalTokenValue()
	if err != nil {
		return nil, err
	}

	if _, err = checkAmounts(cancellation.SellerFundingUTXOs); err != nil {
		return nil, err
	}

	tradeValue, err := numbers.CheckedMul(cancellation.UnitPrice, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("%w: trade value: %w", bitcoin.ErrInvalidOutput, err)
	}

	sellerInputBuilder, err := NewPSBTInputBuilder(seller.PublicKey, seller.Address, b.params.Network, b.prevTxFetcher)
	if err != nil {
		return nil, err
	}

	var (
		reclaimScript  = sellerInputBuilder.PkScript()
		platformFee    = numbers.FloorMul(tradeValue, seller.ServiceFeeRate)
		platformScript []byte
		requiredAmount int64
		outputs        = len(cancellation.ListedUTXOs)
	)
	if numbers.IsAboveDust(platformFee, b.params.DustThreshold) {
		platformScript, err = b.payToAddrScript(cancellation.PlatformReceiveAddress)
		if err != nil {
			return nil, err
		}

		outputs++
		requiredAmount = platformFee
	}

	usedUTXOs, fee, size, err := SelectUTXOs(cancellation.SellerFundingUTXOs, requiredAmount, b.params.DustThreshold, func(selected int) (int64, int64) {
		return EstimateFee(len(cancellation.ListedUTXOs)+selected, outputs, *seller.NetworkFeeRate, true)
	})
	if err != nil {
		var insufficientErr *InsufficientError
		if errors.As(err, &insufficientErr) {
			insufficientErr.setCauser(CauserSeller)
		}

		return nil, err
	}

	draft := newTxDraft()
	for _, utxo := range cancellation.ListedUTXOs {
		input, err := sellerInputBuilder.BuildInput(ctx, utxo.UTXO, PaymentSigHashType)
		if err != nil {
			return nil, err
		}

		draft.addInput(input)
		draft.addOutput(wire.NewTxOut(utxo.Amount, reclaimScript))
	}

	if platformScript != nil {
		draft.addOutput(wire.NewTxOut(platformFee, platformScript))
	}

	for _, utxo := range usedUTXOs {
		input, err := sellerInputBuilder.BuildInput(ctx, utxo, PaymentSigHashType)
		if err != nil {
			return nil, err
		}

		draft.addInput(input)
	}

	change := numbers.Sum(utxosAmounts(usedUTXOs)...) - requiredAmount - fee
	if numbers.IsAboveDust(change, b.params.DustThreshold) {
		draft.addOutput(wire.NewTxOut(change, reclaimScript))
	}

	signIndexes := make([]bitcoin.SignIndex, len(draft.inputs))
	for i := range draft.inputs {
		signIndexes[i] = bitcoin.SignIndex{Index: i, SighashType: PaymentSigHashType}
	}

	serialized, err := draft.toPSBT(SellerInputsHelpingKey, signIndexes)
	if err != nil {
		return nil, err
	}

	return &bitcoin.UnsignedPSBT{
		PSBT:          serialized,
		SignIndexes:   signIndexes,
		ServiceFee:    requiredAmount,
		NetworkFee:    fee,
		EstimatedSize: size,
	}, nil
}

// sellerLeg describes listed input with paired seller output.
type sellerLeg struct {
	input      *InputDescriptor
	output     *wire.TxOut
	serviceFee int64
}

// buildSellerLegs returns listed inputs paired with seller outputs in the listing order.
func (b *TxBuilder) buildSellerLegs(ctx context.Context, tokenID string, unitPrice int64, listed []bitcoin.TokenUTXO, seller bitcoin.Party) ([]sellerLeg, error) {
	if len(listed) == 0 {
		return nil, fmt.Errorf("%w: no listed utxos", bitcoin.ErrInvalidInputCount)
	}

	for _, utxo := range listed {
		if !utxo.CarriesOnly(tokenID) {
			return nil, fmt.Errorf("%w: %s:%d", bitcoin.ErrMultipleTokensSameUTXO, utxo.TxHash, utxo.Index)
		}
	}

	sellerInputBuilder, err := NewPSBTInputBuilder(seller.PublicKey, seller.Address, b.params.Network, b.prevTxFetcher)
	if err != nil {
		return nil, err
	}

	receiveScript, err := b.payToAddrScript(seller.ReceiveAddress)
	if err != nil {
		return nil, err
	}

	legs := make([]sellerLeg, len(listed))
	for i, utxo := range listed {
		legs[i].input, err = sellerInputBuilder.BuildInput(ctx, utxo.UTXO, SellerSigHashType)
		if err != nil {
			return nil, err
		}

		var value int64
		value, legs[i].serviceFee, err = SellerOutputValue(unitPrice, utxo.Amount, seller.ServiceFeeRate)
		if err != nil {
			return nil, err
		}
		legs[i].output = wire.NewTxOut(value, receiveScript)
	}

	return legs, nil
}

// payToAddrScript returns locking script of any standard address of the builder network.
func (b *TxBuilder) payToAddrScript(address string) ([]byte, error) {
	decoded, err := decodeForNet(address, b.params.Network)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(decoded)
}

// txDraft accumulates unsigned transaction together with inputs data.
type txDraft struct {
	tx     *wire.MsgTx
	inputs []*InputDescriptor
}

func newTxDraft() *txDraft {
	return &txDraft{tx: wire.NewMsgTx(txVersion)}
}

// addInput appends input and returns its index.
func (d *txDraft) addInput(input *InputDescriptor) int {
	d.tx.AddTxIn(input.TxIn())
	d.inputs = append(d.inputs, input)

	return len(d.inputs) - 1
}

func (d *txDraft) addOutput(output *wire.TxOut) {
	d.tx.AddTxOut(wire.NewTxOut(output.Value, output.PkScript))
}

// toPSBT returns serialized PSBT with inputs data and sign indexes hint under the helping key.
func (d *txDraft) toPSBT(helpingKey InputsHelpingKey, signIndexes []bitcoin.SignIndex) ([]byte, error) {
	p, err := psbt.NewFromUnsignedTx(d.tx)
	if err != nil {
		return nil, err
	}

	for i, input := range d.inputs {
		input.PrepareInput(&p.Inputs[i])
	}

	indexes := make([]int, len(signIndexes))
	for i, signIndex := range signIndexes {
		indexes[i] = signIndex.Index
	}

	unknown, err := newHelpingUnknown(helpingKey, indexes)
	if err != nil {
		return nil, err
	}
	p.Unknowns = append(p.Unknowns, unknown)

	w := bytes.NewBuffer(nil)
	err = p.Serialize(w)
	if err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

func utxosAmounts(utxos []bitcoin.UTXO) []int64 {
	amounts := make([]int64, len(utxos))
	for i, utxo := range utxos {
		amounts[i] = utxo.Amount
	}

	return amounts
}
