// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/merger"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/verifier"
	"github.com/BoostyLabs/arc20-psbt/internal/bitcoind"
)

const (
	codeBadRequest     = "ERR_BAD_REQUEST"
	codeNodeFailure    = "ERR_NODE_UNAVAILABLE"
	codeInternalFailed = "ERR_INTERNAL"
)

// errBadRequest marks malformed request errors.
var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return errors.Join(errBadRequest, err)
}

// abortWithError maps the error to the response status and {code, message} body.
// Trade errors are unprocessable entities, node failures are bad gateway.
func abortWithError(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, errorResponse{Code: codeInternalFailed, Message: "internal error"}

	if code, ok := bitcoin.CodeOf(err); ok {
		var tradeErr *bitcoin.Error
		errors.As(err, &tradeErr)
		status, body = http.StatusUnprocessableEntity, errorResponse{Code: string(code), Message: tradeErr.Message}

		var insufficientErr *txbuilder.InsufficientError
		if errors.As(err, &insufficientErr) {
			body.Message = insufficientErr.Error()
		}
	} else {
		switch {
		case errors.Is(err, errBadRequest),
			errors.Is(err, txbuilder.ErrPSBTInputBuilder),
			errors.Is(err, verifier.ErrInvalidPSBT),
			errors.Is(err, merger.ErrMerger):
			status, body = http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: err.Error()}
		case errors.Is(err, bitcoind.ErrBitcoind):
			status, body = http.StatusBadGateway, errorResponse{Code: codeNodeFailure, Message: "bitcoin node request failed"}
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
