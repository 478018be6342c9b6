// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
)

// ErrorCode defines machine readable trade error code.
type ErrorCode string

const (
	// CodeMultipleTokensSameUTXO defines that listed UTXO carries tokens other than the sold one.
	CodeMultipleTokensSameUTXO ErrorCode = "ERR_MULTIPLE_TOKENS_SAME_UTXO"
	// CodeNotEnoughUTXO defines that provided UTXOs do not cover required amount with fee.
	CodeNotEnoughUTXO ErrorCode = "ERR_NOT_ENOUGH_UTXO"
	// CodeMissingBuyerInfo defines that buyer side operation is requested without buyer.
	CodeMissingBuyerInfo ErrorCode = "ERR_MISSING_BUYER_INFO"
	// CodeMissingBuyerUTXO defines that buyer side operation is requested without buyer UTXOs.
	CodeMissingBuyerUTXO ErrorCode = "ERR_MISSING_BUYER_UTXO"
	// CodeMissingNetworkFeeRate defines that fee paying party has no network fee rate.
	CodeMissingNetworkFeeRate ErrorCode = "ERR_MISSING_NETWORK_FEE_RATE"
	// CodeUnsupportedAddress defines that address type or network is not supported.
	CodeUnsupportedAddress ErrorCode = "ERR_UNSUPPORTED_ADDRESS"
	// CodeInvalidSignature defines that input signature is missing or invalid.
	CodeInvalidSignature ErrorCode = "ERR_INVALID_SIGNATURE"
	// CodeInvalidInputCount defines PSBT inputs amount mismatch.
	CodeInvalidInputCount ErrorCode = "ERR_INVALID_INPUT_COUNT"
	// CodeInvalidOutputCount defines PSBT outputs amount mismatch.
	CodeInvalidOutputCount ErrorCode = "ERR_INVALID_OUTPUT_COUNT"
	// CodeInvalidInput defines PSBT input mismatch.
	CodeInvalidInput ErrorCode = "ERR_INVALID_INPUT"
	// CodeInvalidOutput defines PSBT output mismatch.
	CodeInvalidOutput ErrorCode = "ERR_INVALID_OUTPUT"
)

// Error is the trade error with code to be returned to the caller.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error returns error description.
func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrMultipleTokensSameUTXO defines error when listed UTXO carries several tokens.
	ErrMultipleTokensSameUTXO = &Error{CodeMultipleTokensSameUTXO, "multiple tokens in same utxo"}
	// ErrNotEnoughUTXO defines error when UTXOs do not cover the payment.
	ErrNotEnoughUTXO = &Error{CodeNotEnoughUTXO, "not enough utxo"}
	// ErrMissingBuyerInfo defines error when buyer info is absent.
	ErrMissingBuyerInfo = &Error{CodeMissingBuyerInfo, "missing buyer info"}
	// ErrMissingBuyerUTXO defines error when buyer UTXOs are absent.
	ErrMissingBuyerUTXO = &Error{CodeMissingBuyerUTXO, "missing buyer utxo"}
	// ErrMissingNetworkFeeRate defines error when network fee rate is absent.
	ErrMissingNetworkFeeRate = &Error{CodeMissingNetworkFeeRate, "missing network fee rate"}
	// ErrUnsupportedAddress defines error for unknown address formats.
	ErrUnsupportedAddress = &Error{CodeUnsupportedAddress, "unsupported address"}
	// ErrInvalidSignature defines error for missing or invalid signatures.
	ErrInvalidSignature = &Error{CodeInvalidSignature, "invalid signature"}
	// ErrInvalidInputCount defines error for inputs amount mismatch.
	ErrInvalidInputCount = &Error{CodeInvalidInputCount, "invalid input count"}
	// ErrInvalidOutputCount defines error for outputs amount mismatch.
	ErrInvalidOutputCount = &Error{CodeInvalidOutputCount, "invalid output count"}
	// ErrInvalidInput defines error for input mismatch.
	ErrInvalidInput = &Error{CodeInvalidInput, "invalid input"}
	// ErrInvalidOutput defines error for output mismatch.
	ErrInvalidOutput = &Error{CodeInvalidOutput, "invalid output"}
)

// CodeOf returns code of the trade error found in the error chain.
func CodeOf(err error) (ErrorCode, bool) {
	var tradeErr *Error
	if errors.As(err, &tradeErr) {
		return tradeErr.Code, true
	}

	return "", false
}
