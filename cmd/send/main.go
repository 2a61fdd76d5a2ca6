package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-utils/cli"
	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/flashbots/mev-share-client-go/rpcclient"
	"go.uber.org/zap"
)

var (
	defaultConfig = cli.GetEnv("CLIENT_CONFIG", "client.yaml")

	configPtr   = flag.String("config", defaultConfig, "client config file")
	bundlePtr   = flag.String("bundle", "", "json file with bundle params to send")
	simulatePtr = flag.Bool("simulate", false, "simulate the bundle instead of sending it")
	simOptsPtr  = flag.String("sim-options", "", "json file with simulation options")
	txPtr       = flag.String("tx", "", "signed transaction to send privately")
	txOptsPtr   = flag.String("tx-options", "", "json file with transaction options")
	cancelPtr   = flag.String("cancel", "", "hash of a private transaction to cancel")
	timeoutPtr  = flag.Duration("timeout", 30*time.Second, "overall timeout")
)

var errInvalidTxHash = errors.New("invalid tx hash")

// parseTxHash accepts only 0x-prefixed hex of exactly 32 bytes
func parseTxHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %s", errInvalidTxHash, err.Error())
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: expected %d bytes, got %d", errInvalidTxHash, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func readJSON(file string, out any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	config, err := rpcclient.LoadConfig(*configPtr)
	if err != nil {
		logger.Fatal("Failed to load client config", zap.Error(err))
	}
	key, err := config.SigningKey()
	if err != nil {
		logger.Fatal("Failed to load signing key", zap.Error(err))
	}
	client := rpcclient.NewClient(logger, config, key)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutPtr)
	defer cancel()

	switch {
	case *bundlePtr != "":
		var bundle mevshare.BundleParams
		if err := readJSON(*bundlePtr, &bundle); err != nil {
			logger.Fatal("Failed to read bundle", zap.Error(err))
		}
		if !*simulatePtr {
			res, err := client.SendBundle(ctx, &bundle)
			if err != nil {
				logger.Fatal("Failed to send bundle", zap.Error(err))
			}
			logger.Info("Bundle sent", zap.String("bundleHash", res.BundleHash.Hex()))
			return
		}

		var simOpts *mevshare.SimBundleOptions
		if *simOptsPtr != "" {
			simOpts = &mevshare.SimBundleOptions{}
			if err := readJSON(*simOptsPtr, simOpts); err != nil {
				logger.Fatal("Failed to read simulation options", zap.Error(err))
			}
		}
		res, err := client.SimulateBundle(ctx, &bundle, simOpts)
		if err != nil {
			logger.Fatal("Failed to simulate bundle", zap.Error(err))
		}
		logger.Info("Bundle simulated",
			zap.Bool("success", res.Success),
			zap.String("error", res.Error),
			zap.Uint64("stateBlock", uint64(res.StateBlock)),
			zap.Uint64("gasUsed", uint64(res.GasUsed)),
			zap.String("mevGasPrice", res.MevGasPrice.String()),
			zap.String("profit", res.Profit.String()),
		)
	case *txPtr != "":
		var opts *mevshare.TransactionOptions
		if *txOptsPtr != "" {
			opts = &mevshare.TransactionOptions{}
			if err := readJSON(*txOptsPtr, opts); err != nil {
				logger.Fatal("Failed to read transaction options", zap.Error(err))
			}
		}
		hash, err := client.SendPrivateTransaction(ctx, *txPtr, opts)
		if err != nil {
			logger.Fatal("Failed to send private transaction", zap.Error(err))
		}
		logger.Info("Private transaction sent", zap.String("hash", hash.Hex()))
	case *cancelPtr != "":
		hash, err := parseTxHash(*cancelPtr)
		if err != nil {
			logger.Fatal("Failed to parse tx hash", zap.Error(err))
		}
		cancelled, err := client.CancelPrivateTransaction(ctx, hash)
		if err != nil {
			logger.Fatal("Failed to cancel private transaction", zap.Error(err))
		}
		logger.Info("Private transaction cancel requested", zap.Bool("cancelled", cancelled))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
