// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// NetworkKey is the bitcoin network, one of mainnet, testnet or regtest.
	NetworkKey = "NETWORK"
	// BitcoinRPCHostKey is the bitcoind host, http:// or https:// scheme is allowed.
	BitcoinRPCHostKey = "BITCOIN_RPC_HOST"
	// BitcoinRPCPortKey is the bitcoind JSON-RPC port.
	BitcoinRPCPortKey = "BITCOIN_RPC_PORT"
	// BitcoinRPCUserKey is the bitcoind JSON-RPC user.
	BitcoinRPCUserKey = "BITCOIN_RPC_USER"
	// BitcoinRPCPassKey is the bitcoind JSON-RPC password.
	BitcoinRPCPassKey = "BITCOIN_RPC_PASS"
	// BitcoinRPCTimeoutKey are the milliseconds to wait for bitcoind responses.
	BitcoinRPCTimeoutKey = "BITCOIN_RPC_TIMEOUT"
	// PlatformFeeAddressKey is the address receiving platform service fees.
	PlatformFeeAddressKey = "PLATFORM_FEE_ADDRESS"
	// DustThresholdKey is the amount in satoshi outputs must be above.
	DustThresholdKey = "DUST_THRESHOLD"
	// ListenAddrKey is the address the HTTP server listens on.
	ListenAddrKey = "LISTEN_ADDR"
	// LogLevelKey is the logrus level name.
	LogLevelKey = "LOG_LEVEL"
)

// ErrConfig indicates that configuration is invalid.
var ErrConfig = errors.New("config error")

var networks = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"regtest": &chaincfg.RegressionNetParams,
}

// BitcoinRPC describes bitcoind connection settings.
type BitcoinRPC struct {
	Host    string // host without scheme.
	Port    int
	User    string
	Pass    string
	TLS     bool
	Timeout time.Duration
}

// Endpoint returns host:port of the node.
func (rpc BitcoinRPC) Endpoint() string {
	return fmt.Sprintf("%s:%d", rpc.Host, rpc.Port)
}

// Config describes daemon settings.
type Config struct {
	Network            *chaincfg.Params
	BitcoinRPC         BitcoinRPC
	PlatformFeeAddress string
	DustThreshold      int64
	ListenAddr         string
	LogLevel           logrus.Level
}

// Load reads configuration from environment variables, values from provided
// .env files are used for variables not set in environment. Missing files are skipped.
func Load(envFiles ...string) (_ *Config, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrConfig, err)
		}
	}()

	for _, file := range envFiles {
		if err = godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	vip := viper.New()
	vip.AutomaticEnv()

	vip.SetDefault(NetworkKey, "testnet")
	vip.SetDefault(BitcoinRPCHostKey, "localhost")
	vip.SetDefault(BitcoinRPCPortKey, 38332)
	vip.SetDefault(BitcoinRPCUserKey, "__cookie__")
	vip.SetDefault(BitcoinRPCPassKey, "")
	vip.SetDefault(BitcoinRPCTimeoutKey, 120000)
	vip.SetDefault(PlatformFeeAddressKey, "")
	vip.SetDefault(DustThresholdKey, 546)
	vip.SetDefault(ListenAddrKey, ":3000")
	vip.SetDefault(LogLevelKey, logrus.InfoLevel.String())

	network, ok := networks[strings.ToLower(vip.GetString(NetworkKey))]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", vip.GetString(NetworkKey))
	}

	platformFeeAddress := vip.GetString(PlatformFeeAddressKey)
	address, err := btcutil.DecodeAddress(platformFeeAddress, network)
	if err != nil {
		return nil, fmt.Errorf("platform fee address: %w", err)
	}
	if !address.IsForNet(network) {
		return nil, fmt.Errorf("platform fee address %q is not for %s", platformFeeAddress, network.Name)
	}

	dustThreshold := vip.GetInt64(DustThresholdKey)
	if dustThreshold <= 0 {
		return nil, fmt.Errorf("dust threshold must be positive, got %d", dustThreshold)
	}

	timeout := vip.GetInt64(BitcoinRPCTimeoutKey)
	if timeout <= 0 {
		return nil, fmt.Errorf("bitcoin rpc timeout must be positive, got %d", timeout)
	}

	logLevel, err := logrus.ParseLevel(vip.GetString(LogLevelKey))
	if err != nil {
		return nil, err
	}

	host, useTLS := splitScheme(vip.GetString(BitcoinRPCHostKey))

	return &Config{
		Network: network,
		BitcoinRPC: BitcoinRPC{
			Host:    host,
			Port:    vip.GetInt(BitcoinRPCPortKey),
			User:    vip.GetString(BitcoinRPCUserKey),
			Pass:    vip.GetString(BitcoinRPCPassKey),
			TLS:     useTLS,
			Timeout: time.Duration(timeout) * time.Millisecond,
		},
		PlatformFeeAddress: platformFeeAddress,
		DustThreshold:      dustThreshold,
		ListenAddr:         vip.GetString(ListenAddrKey),
		LogLevel:           logLevel,
	}, nil
}

// splitScheme strips http scheme from the host, https means TLS connection.
func splitScheme(host string) (string, bool) {
	switch {
	case strings.HasPrefix(host, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(host, "https://"), "/"), true
	case strings.HasPrefix(host, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(host, "http://"), "/"), false
	default:
		return host, false
	}
}
