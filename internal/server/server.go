// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package server exposes PSBT building, verification and merge over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/verifier"
)

const shutdownTimeout = 10 * time.Second

// Config describes server settings.
type Config struct {
	ListenAddr             string
	PlatformReceiveAddress string
}

// Server handles HTTP requests of the trade parties.
type Server struct {
	config   Config
	builder  *txbuilder.TxBuilder
	verifier *verifier.Verifier
	log      logrus.FieldLogger
	engine   *gin.Engine
}

// New is a constructor for Server.
func New(config Config, builder *txbuilder.TxBuilder, verifier *verifier.Verifier, log logrus.FieldLogger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		config:   config,
		builder:  builder,
		verifier: verifier,
		log:      log.WithField("component", "server"),
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestID(), observe(s.log, newMetrics(registry)))

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api/v1/psbt")
	api.POST("/seller", s.sellerPSBT)
	api.POST("/buyer", s.buyerPSBT)
	api.POST("/extract", s.extract)
	api.POST("/cancel", s.cancelPSBT)
	api.POST("/verify/seller", s.verifySeller)
	api.POST("/verify/buyer", s.verifyBuyer)
	api.POST("/verify/seller_cancel", s.verifySellerCancel)

	return s
}

// Handler returns http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens for requests until the context is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.config.ListenAddr).Info("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	s.log.Info("server stopped")

	return err
}
