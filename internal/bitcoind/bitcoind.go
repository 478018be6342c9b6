// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package bitcoind provides previous transactions source backed by bitcoind JSON-RPC.
package bitcoind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/BoostyLabs/arc20-psbt/internal/config"
)

// ErrBitcoind indicates that an error occurred while requesting bitcoind.
var ErrBitcoind = errors.New("bitcoind error")

// Fetcher fetches raw transactions from bitcoind, safe for concurrent use.
type Fetcher struct {
	client  *rpcclient.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewFetcher is a constructor for Fetcher, no connection is made until the first request.
func NewFetcher(cfg config.BitcoinRPC, log logrus.FieldLogger) (*Fetcher, error) {
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Endpoint(),
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   !cfg.TLS,
	}, nil)
	if err != nil {
		return nil, errors.Join(ErrBitcoind, err)
	}

	log = log.WithField("component", "bitcoind")

	return &Fetcher{
		client:  client,
		cb:      newCircuitBreaker(log),
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// rpcResult holds the call outcome, node side errors pass the breaker as a success.
type rpcResult struct {
	tx  *wire.MsgTx
	err error
}

// FetchPrevTx returns transaction by its hash.
func (f *Fetcher) FetchPrevTx(ctx context.Context, txHash string) (*wire.MsgTx, error) {
	hash, err := chainhash.NewHashFromStr(txHash)
	if err != nil {
		return nil, errors.Join(ErrBitcoind, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.cb.Execute(func() (interface{}, error) {
		done := make(chan rpcResult, 1)
		go func() {
			tx, err := f.client.GetRawTransactionAsync(hash).Receive()
			if err != nil {
				done <- rpcResult{err: err}
				return
			}

			done <- rpcResult{tx: tx.MsgTx()}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-done:
			var rpcErr *btcjson.RPCError
			if errors.As(res.err, &rpcErr) {
				return res, nil
			}

			return res, res.err
		}
	})
	if err != nil {
		f.log.WithError(err).WithField("txid", txHash).Error("could not fetch transaction")
		return nil, errors.Join(ErrBitcoind, err)
	}

	result := res.(rpcResult)
	if result.err != nil {
		f.log.WithError(result.err).WithField("txid", txHash).Debug("node rejected transaction request")
		return nil, errors.Join(ErrBitcoind, fmt.Errorf("getrawtransaction %s: %w", txHash, result.err))
	}

	return result.tx, nil
}

// Close shuts the client down.
func (f *Fetcher) Close() {
	f.client.Shutdown()
}

func newCircuitBreaker(log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "bitcoind",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.7
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("bitcoind seems down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				log.Info("checking bitcoind status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Info("bitcoind seems ok, restart allowing requests")
			}
		},
	})
}
