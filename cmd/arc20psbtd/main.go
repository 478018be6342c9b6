// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BoostyLabs/arc20-psbt/bitcoin/txbuilder"
	"github.com/BoostyLabs/arc20-psbt/bitcoin/verifier"
	"github.com/BoostyLabs/arc20-psbt/internal/bitcoind"
	"github.com/BoostyLabs/arc20-psbt/internal/config"
	"github.com/BoostyLabs/arc20-psbt/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	envFile string

	app = &cobra.Command{
		Use:           "arc20psbtd",
		Short:         "ARC20 atomic swap PSBT service",
		Long:          "arc20psbtd builds, verifies and merges PSBTs of ARC20 token trades between a seller and a buyer",
		Version:       formatVersion(),
		RunE:          serve,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start HTTP server",
		RunE:  serve,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(formatVersion())
		},
	}
)

func init() {
	app.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path of the .env file with configuration")
	app.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := app.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log.SetLevel(cfg.LogLevel)
	if cfg.LogLevel < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := log.StandardLogger()
	fetcher, err := bitcoind.NewFetcher(cfg.BitcoinRPC, logger)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	builder := txbuilder.NewTxBuilder(txbuilder.Params{
		Network:       cfg.Network,
		DustThreshold: cfg.DustThreshold,
	}, fetcher)

	srv := server.New(server.Config{
		ListenAddr:             cfg.ListenAddr,
		PlatformReceiveAddress: cfg.PlatformFeeAddress,
	}, builder, verifier.NewVerifier(builder), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"network": cfg.Network.Name,
		"node":    cfg.BitcoinRPC.Endpoint(),
		"version": version,
	}).Info("starting arc20psbtd")

	return srv.Run(ctx)
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}
