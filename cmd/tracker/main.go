package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "tracker",
		Short:        "Wallet risk scoring and blacklist tracker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze wallets and update the blacklist",
		RunE:  runAnalyze,
	}
	addAnalyzeFlags(analyzeCmd)
	root.AddCommand(analyzeCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Re-analyze wallets on an interval",
		RunE:  runMonitor,
	}
	addAnalyzeFlags(monitorCmd)
	monitorCmd.Flags().Duration("interval", 5*time.Minute, "time between analysis batches")
	root.AddCommand(monitorCmd)

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Score wallet linkage over a token's transfer graph",
		RunE:  runCluster,
	}
	clusterCmd.Flags().String("explorer", "", "explorer API base URL")
	clusterCmd.Flags().String("explorer-key", "", "explorer API key")
	clusterCmd.Flags().String("rpc", "", "node RPC URL (optional, overrides explorer for token data)")
	clusterCmd.Flags().Float64("rate-limit", 4.0, "explorer requests per second")
	clusterCmd.Flags().String("token", "", "token contract address")
	clusterCmd.Flags().StringSlice("seed", nil, "seed wallet addresses (comma-separated)")
	clusterCmd.Flags().String("out", "./data/cluster.json", "output report path")
	clusterCmd.Flags().Float64("expansion-threshold", 0.4, "minimum mean similarity for suggestions")
	clusterCmd.Flags().Int("early-buyer-limit", 20, "how many first buyers to consider")
	clusterCmd.Flags().Int("secondary-activity-threshold", 100, "tx count below which a funded wallet looks fresh")
	clusterCmd.Flags().Uint64("block-window", 100_000, "blocks to scan after token creation (rpc mode)")
	clusterCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(clusterCmd)

	checkCmd := &cobra.Command{
		Use:   "check [wallet]",
		Short: "Look up a wallet in the blacklist",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	checkCmd.Flags().String("blacklist", "./data/blacklist.json", "blacklist file path")
	checkCmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides the file store)")
	root.AddCommand(checkCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().String("explorer", "", "explorer API base URL")
	cmd.Flags().String("explorer-key", "", "explorer API key")
	cmd.Flags().String("rpc", "", "node RPC URL (optional, overrides explorer for token data)")
	cmd.Flags().Float64("rate-limit", 4.0, "explorer requests per second")
	cmd.Flags().StringSlice("wallet", nil, "wallet addresses to analyze (comma-separated)")
	cmd.Flags().StringSlice("factory", nil, "launchpad factory addresses (comma-separated)")
	cmd.Flags().String("known-actors", "", "JSON file of known bad actors")
	cmd.Flags().String("blacklist", "./data/blacklist.json", "blacklist file path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides the file store)")
	cmd.Flags().Int("workers", 4, "concurrent wallet analyses")
	cmd.Flags().Int("decimals", 18, "token decimals for threshold scaling")
	cmd.Flags().Uint64("block-window", 100_000, "blocks to scan after token creation (rpc mode)")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts for data fetches")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("max-time-to-dump", 300*time.Second, "sell-after-launch window flagged as a dump")
	cmd.Flags().String("min-buy-limit", "5.0", "self-buy total flagged as a pump (token units)")
	cmd.Flags().Duration("bonding-time", 600*time.Second, "estimated bonding period after launch")
	cmd.Flags().Int("min-victims", 5, "victim count that raises the rug score")
	cmd.Flags().String("loss-epsilon", "0.01", "net loss below this is ignored (token units)")
	cmd.Flags().String("loss-flag-threshold", "10", "total losses that raise the rug score (token units)")
	cmd.Flags().Int("serial-threshold", 3, "deployment count that marks a serial deployer")
	cmd.Flags().String("loss-threshold", "10", "total losses that force a blacklist (token units)")
	cmd.Flags().Int("victim-threshold", 5, "unique victims that force a blacklist")
	cmd.Flags().String("profiteer-threshold", "10", "extracted value that marks a profiteer (token units)")
	cmd.Flags().String("loss-risk-threshold", "50", "losses adding risk points (token units)")
	cmd.Flags().String("price-url", "", "price API base URL")
	cmd.Flags().String("coin-id", "avalanche-2", "price API coin id")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
