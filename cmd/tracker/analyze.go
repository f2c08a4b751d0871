package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletScope/internal/blacklist"
	"walletScope/internal/blacklist/postgres"
	"walletScope/internal/chain"
	"walletScope/internal/chaindata"
	"walletScope/internal/config"
	"walletScope/internal/lifecycle"
	"walletScope/internal/pipeline"
	"walletScope/internal/price"
	"walletScope/internal/ratelimit"
	"walletScope/internal/risk"
)

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAnalyze(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Wallets) == 0 {
		return fmt.Errorf("wallet list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("analyze start",
		zap.Int("wallets", len(cfg.Wallets)),
		zap.Int("workers", cfg.Workers),
		zap.String("explorer", cfg.ExplorerURL),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	summary, err := runner.AnalyzeWallets(ctx, cfg.Wallets)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary.Profiles)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAnalyze(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Wallets) == 0 {
		return fmt.Errorf("wallet list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("monitor start",
		zap.Int("wallets", len(cfg.Wallets)),
		zap.Duration("interval", cfg.Interval),
	)

	_, err = runner.Monitor(ctx, cfg.Wallets, cfg.Interval)
	return err
}

// buildRunner wires the analysis pipeline from loaded config. The cleanup
// function closes whatever connections were opened.
func buildRunner(ctx context.Context, cfg config.AnalyzeConfig, logger *zap.Logger) (*pipeline.Runner, func(), error) {
	cleanup := func() {}

	if cfg.ExplorerURL == "" {
		return nil, cleanup, fmt.Errorf("explorer url is required")
	}

	limiter, err := ratelimit.NewTokenBucket(cfg.RateLimit)
	if err != nil {
		return nil, cleanup, fmt.Errorf("rate limit: %w", err)
	}

	explorer, err := chaindata.NewClient(cfg.ExplorerURL, cfg.ExplorerAPIKey, limiter, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var data pipeline.ChainData = explorer
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect rpc: %w", err)
		}
		cleanup = chainClient.Close
		rpcSource, err := pipeline.NewRPCSource(chainClient, cfg.BlockWindow)
		if err != nil {
			return nil, cleanup, err
		}
		data = pipeline.NewHybridSource(explorer, rpcSource)
	}

	store, storeClose, err := openStore(ctx, cfg.PGDSN, cfg.BlacklistPath)
	if err != nil {
		return nil, cleanup, err
	}
	prevCleanup := cleanup
	cleanup = func() {
		storeClose()
		prevCleanup()
	}

	lifecycleCfg, err := cfg.Lifecycle()
	if err != nil {
		return nil, cleanup, err
	}
	analyzer, err := lifecycle.NewAnalyzer(lifecycleCfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	thresholds, err := cfg.Risk()
	if err != nil {
		return nil, cleanup, err
	}
	aggregator, err := risk.NewAggregator(thresholds, logger)
	if err != nil {
		return nil, cleanup, err
	}

	prices := price.NewClient(cfg.PriceURL, cfg.CoinID, limiter, logger)

	runner, err := pipeline.NewRunner(pipeline.RunConfig{
		Workers:          cfg.Workers,
		FactoryAddresses: cfg.FactoryAddresses,
		TokenDecimals:    cfg.TokenDecimals,
		KnownActorsPath:  cfg.KnownActorsPath,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
	}, data, store, analyzer, aggregator, prices, logger)
	if err != nil {
		return nil, cleanup, err
	}
	return runner, cleanup, nil
}

func openStore(ctx context.Context, dsn, path string) (blacklist.Store, func(), error) {
	if dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	}
	store, err := blacklist.NewFileStore(path)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() {}, nil
}
