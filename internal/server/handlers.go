// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/merger"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bind decodes and validates JSON request body.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, badRequest(err))
		return false
	}

	return true
}

func (s *Server) bindOrder(c *gin.Context, req *orderInfo) (bitcoin.Order, bool) {
	order, err := req.toOrder(s.config.PlatformReceiveAddress)
	if err != nil {
		abortWithError(c, badRequest(err))
		return bitcoin.Order{}, false
	}

	return order, true
}

func (s *Server) bindCancellation(c *gin.Context, req *orderCancel) (bitcoin.OrderCancellation, bool) {
	cancellation, err := req.toCancellation(s.config.PlatformReceiveAddress)
	if err != nil {
		abortWithError(c, badRequest(err))
		return bitcoin.OrderCancellation{}, false
	}

	return cancellation, true
}

func (s *Server) sellerPSBT(c *gin.Context) {
	var req orderInfo
	if !s.bind(c, &req) {
		return
	}

	order, ok := s.bindOrder(c, &req)
	if !ok {
		return
	}

	unsigned, err := s.builder.BuildListingPSBT(c.Request.Context(), order)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPSBTToSign(unsigned))
}

func (s *Server) buyerPSBT(c *gin.Context) {
	var req orderInfo
	if !s.bind(c, &req) {
		return
	}

	order, ok := s.bindOrder(c, &req)
	if !ok {
		return
	}

	if err := txbuilder.CheckBuyer(order); err != nil {
		abortWithError(c, err)
		return
	}

	unsigned, err := s.builder.BuildFulfillmentPSBT(c.Request.Context(), order)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPSBTToSign(unsigned))
}

func (s *Server) cancelPSBT(c *gin.Context) {
	var req orderCancel
	if !s.bind(c, &req) {
		return
	}

	cancellation, ok := s.bindCancellation(c, &req)
	if !ok {
		return
	}

	unsigned, err := s.builder.BuildCancellationPSBT(c.Request.Context(), cancellation)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPSBTToSign(unsigned))
}

func (s *Server) extract(c *gin.Context) {
	var req psbtToMerge
	if !s.bind(c, &req) {
		return
	}

	sellerPSBT, err := decodePSBT(req.SellerPSBT)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	buyerPSBT, err := decodePSBT(req.BuyerPSBT)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	txHex, err := merger.MergeToHex(sellerPSBT, buyerPSBT)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, extractResponse{TxHex: txHex})
}

func (s *Server) verifySeller(c *gin.Context) {
	var req signedOrderInfo
	if !s.bind(c, &req) {
		return
	}

	order, ok := s.bindOrder(c, &req.orderInfo)
	if !ok {
		return
	}

	signed, err := decodePSBT(req.PSBTBase64)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	if err = s.verifier.VerifySellerPSBT(c.Request.Context(), order, signed); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{Valid: true})
}

func (s *Server) verifyBuyer(c *gin.Context) {
	var req signedOrderInfo
	if !s.bind(c, &req) {
		return
	}

	order, ok := s.bindOrder(c, &req.orderInfo)
	if !ok {
		return
	}

	if err := txbuilder.CheckBuyer(order); err != nil {
		abortWithError(c, err)
		return
	}

	signed, err := decodePSBT(req.PSBTBase64)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	if err = s.verifier.VerifyBuyerPSBT(c.Request.Context(), order, signed); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{Valid: true})
}

func (s *Server) verifySellerCancel(c *gin.Context) {
	var req signedOrderCancel
	if !s.bind(c, &req) {
		return
	}

	cancellation, ok := s.bindCancellation(c, &req.orderCancel)
	if !ok {
		return
	}

	signed, err := decodePSBT(req.PSBTBase64)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	err = s.verifier.VerifyCancellation(c.Request.Context(), bitcoin.SignedCancellation{
		Cancellation: cancellation,
		SignedPSBT:   signed,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{Valid: true})
}
