package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/flashbots/go-utils/cli"
	redisadapter "github.com/flashbots/mev-share-client-go/adapters/redis"
	"github.com/flashbots/mev-share-client-go/mevshare"
	"github.com/flashbots/mev-share-client-go/stream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev" // is set during build process

	// Default values
	defaultDebug         = os.Getenv("DEBUG") == "1"
	defaultLogProd       = os.Getenv("LOG_PROD") == "1"
	defaultLogService    = os.Getenv("LOG_SERVICE")
	defaultMetricsPort   = cli.GetEnv("METRICS_PORT", "8088")
	defaultChannelName   = cli.GetEnv("REDIS_CHANNEL_NAME", "hints")
	defaultRedisEndpoint = cli.GetEnv("REDIS_ENDPOINT", "redis://localhost:6379")
	defaultDedupeWindow  = cli.GetEnv("DEDUPE_WINDOW_MS", "60000")
	defaultSharedDedupe  = os.Getenv("DEDUPE_SHARED") == "1"

	// Flags
	debugPtr        = flag.Bool("debug", defaultDebug, "print debug output")
	logProdPtr      = flag.Bool("log-prod", defaultLogProd, "log in production mode (json)")
	logServicePtr   = flag.String("log-service", defaultLogService, "'service' tag to logs")
	metricsPortPtr  = flag.String("metrics-port", defaultMetricsPort, "port for metrics and pprof")
	channelPtr      = flag.String("channel", defaultChannelName, "redis pub/sub channel name string")
	redisPtr        = flag.String("redis", defaultRedisEndpoint, "redis url string")
	dedupeWindowPtr = flag.String("dedupe-window-ms", defaultDedupeWindow, "drop repeated hints within this window (ms), 0 disables")
	sharedDedupePtr = flag.Bool("dedupe-shared", defaultSharedDedupe, "keep seen hints in redis to share them between consumers")
)

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	if *logProdPtr {
		atom := zap.NewAtomicLevel()
		if *debugPtr {
			atom.SetLevel(zap.DebugLevel)
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			atom,
		))
	}
	defer func() { _ = logger.Sync() }()
	if *logServicePtr != "" {
		logger = logger.With(zap.String("service", *logServicePtr))
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	defer ctxCancel()

	logger.Info("Starting mev-share stream", zap.String("version", version))

	redisOpts, err := redis.ParseURL(*redisPtr)
	if err != nil {
		logger.Fatal("Failed to parse redis url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)

	dedupeWindowMs, err := strconv.ParseInt(*dedupeWindowPtr, 10, 64)
	if err != nil || dedupeWindowMs < 0 {
		logger.Fatal("Failed to parse dedupe window", zap.String("value", *dedupeWindowPtr))
	}
	var dedupe stream.Deduper
	if dedupeWindow := time.Duration(dedupeWindowMs) * time.Millisecond; dedupeWindow > 0 {
		if *sharedDedupePtr {
			dedupe = redisadapter.NewSeenCache(redisClient, dedupeWindow, "stream-seen:")
		} else {
			dedupe = stream.NewLocalDeduper(dedupeWindow)
		}
	}

	subscriber := stream.NewSubscriber(logger, redisClient, *channelPtr, stream.Handlers{
		OnTransaction: func(ctx context.Context, tx *mevshare.PendingTransaction) {
			fields := []zap.Field{zap.String("hash", tx.Hash.Hex()), zap.Int("logs", len(tx.Logs))}
			if tx.To != nil {
				fields = append(fields, zap.String("to", tx.To.Hex()))
			}
			if tx.FunctionSelector != nil {
				fields = append(fields, zap.String("functionSelector", tx.FunctionSelector.String()))
			}
			if tx.MevGasPrice != nil {
				fields = append(fields, zap.String("mevGasPrice", tx.MevGasPrice.String()))
			}
			logger.Info("Pending transaction", fields...)
		},
		OnBundle: func(ctx context.Context, bundle *mevshare.PendingBundle) {
			logger.Info("Pending bundle",
				zap.String("hash", bundle.Hash.Hex()),
				zap.Int("txs", len(bundle.Txs)),
				zap.Int("logs", len(bundle.Logs)),
			)
		},
	}, dedupe)

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	metricsMux.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
	metricsMux.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
	metricsMux.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	metricsMux.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
	metricsMux.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", *metricsPortPtr),
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           metricsMux,
	}
	go func() {
		err := metricsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}()

	go func() {
		notifier := make(chan os.Signal, 1)
		signal.Notify(notifier, os.Interrupt, syscall.SIGTERM)
		<-notifier
		logger.Info("Shutting down...")
		ctxCancel()
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}()

	if err := subscriber.Run(ctx); err != nil {
		logger.Error("Subscriber stopped", zap.Error(err))
	}
	_ = redisClient.Close()
}
