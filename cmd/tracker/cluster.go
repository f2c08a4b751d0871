package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletScope/internal/chain"
	"walletScope/internal/chaindata"
	"walletScope/internal/config"
	"walletScope/internal/pipeline"
	"walletScope/internal/ratelimit"
)

func runCluster(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCluster(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.ExplorerURL == "" {
		return fmt.Errorf("explorer url is required")
	}
	if cfg.Token == "" {
		return fmt.Errorf("token address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, err := ratelimit.NewTokenBucket(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	explorer, err := chaindata.NewClient(cfg.ExplorerURL, cfg.ExplorerAPIKey, limiter, logger)
	if err != nil {
		return err
	}

	var data pipeline.ChainData = explorer
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		rpcSource, err := pipeline.NewRPCSource(chainClient, cfg.BlockWindow)
		if err != nil {
			return err
		}
		data = pipeline.NewHybridSource(explorer, rpcSource)
	}

	runner, err := pipeline.NewClusterRunner(pipeline.ClusterConfig{
		ExpansionThreshold:         cfg.ExpansionThreshold,
		EarlyBuyerLimit:            cfg.EarlyBuyerLimit,
		SecondaryActivityThreshold: cfg.SecondaryActivityThreshold,
	}, data, logger)
	if err != nil {
		return err
	}

	logger.Info("cluster start",
		zap.String("token", cfg.Token),
		zap.Int("seed_wallets", len(cfg.SeedWallets)),
		zap.Float64("expansion_threshold", cfg.ExpansionThreshold),
	)

	report, err := runner.Run(ctx, cfg.Token, cfg.SeedWallets)
	if err != nil {
		return err
	}
	return writeReport(cfg.Out, report)
}

func writeReport(path string, report pipeline.ClusterReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
