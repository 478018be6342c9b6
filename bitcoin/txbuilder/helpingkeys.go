// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
)

// ErrUnknownInputsHelpingKey defines that inputs help keys is unknown.
var ErrUnknownInputsHelpingKey = errors.New("unknown inputs help keys")

// InputsHelpingKey defines type for additional data in PSBT Unknowns field
// to distinguish which party signs which inputs.
type InputsHelpingKey byte

const (
	// SellerInputsHelpingKey defines key for inputs signed by the seller.
	SellerInputsHelpingKey InputsHelpingKey = 0x10
	// BuyerInputsHelpingKey defines key for inputs signed by the buyer.
	BuyerInputsHelpingKey InputsHelpingKey = 0x20
)

// InputsHelpingKeyFromBytes parses bytes array into InputsHelpingKey if any.
func InputsHelpingKeyFromBytes(b []byte) (InputsHelpingKey, error) {
	if len(b) != 1 {
		return 0, ErrUnknownInputsHelpingKey
	}

	switch b[0] {
	case SellerInputsHelpingKey.Byte():
		return SellerInputsHelpingKey, nil
	case BuyerInputsHelpingKey.Byte():
		return BuyerInputsHelpingKey, nil
	}

	return 0, ErrUnknownInputsHelpingKey
}

// Byte returns InputsHelpingKey as byte.
func (k InputsHelpingKey) Byte() byte {
	return byte(k)
}

// Bytes returns InputsHelpingKey as bytes array.
func (k InputsHelpingKey) Bytes() []byte {
	return []byte{byte(k)}
}
