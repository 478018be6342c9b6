// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
)

type causerSign string

const (
	// CauserBuyer defines that the buyer caused this error type.
	CauserBuyer causerSign = "buyer"
	// CauserSeller defines that the seller caused this error type.
	CauserSeller causerSign = "seller"
)

// InsufficientError is the error type to describe insufficient utxo errors with details.
// Need and Have are in satoshi, Need includes network fee.
type InsufficientError struct {
	Need   int64
	Have   int64
	Causer causerSign
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(need, have int64) *InsufficientError {
	return &InsufficientError{Need: need, Have: have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	errMsg := fmt.Sprintf("%s: need %d, have %d", bitcoin.ErrNotEnoughUTXO, e.Need, e.Have)
	if e.Causer != "" {
		errMsg += " (" + string(e.Causer) + ")"
	}

	return errMsg
}

// Unwrap returns trade error the InsufficientError belongs to.
func (e *InsufficientError) Unwrap() error {
	return bitcoin.ErrNotEnoughUTXO
}

// setCauser updates InsufficientError with provided causer.
func (e *InsufficientError) setCauser(causer causerSign) *InsufficientError {
	e.Causer = causer
	return e
}
