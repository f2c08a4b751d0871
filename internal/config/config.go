package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AnalyzeConfig holds configuration for wallet analysis, loaded from
// flags, env, or config file.
type AnalyzeConfig struct {
	ExplorerURL    string
	ExplorerAPIKey string
	RPCURL         string
	RateLimit      float64

	Wallets          []string
	FactoryAddresses []string
	KnownActorsPath  string

	BlacklistPath string
	PGDSN         string

	Workers       int
	TokenDecimals int
	BlockWindow   uint64
	Interval      time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration

	MaxTimeToDump     time.Duration
	MinBuyLimit       string
	BondingTime       time.Duration
	MinVictimsForFlag int
	LossEpsilon       string
	LossFlagThreshold string

	SerialThreshold    int
	LossThreshold      string
	VictimThreshold    int
	ProfiteerThreshold string
	LossRiskThreshold  string

	PriceURL string
	CoinID   string

	LogLevel string
}

// LoadAnalyze merges config file, environment variables, and flags into
// AnalyzeConfig.
func LoadAnalyze(cfgFile string, flags *pflag.FlagSet) (AnalyzeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("rate-limit", 4.0)
		v.SetDefault("blacklist", "./data/blacklist.json")
		v.SetDefault("workers", 4)
		v.SetDefault("decimals", 18)
		v.SetDefault("block-window", uint64(100_000))
		v.SetDefault("interval", 5*time.Minute)
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("max-time-to-dump", 300*time.Second)
		v.SetDefault("min-buy-limit", "5.0")
		v.SetDefault("bonding-time", 600*time.Second)
		v.SetDefault("min-victims", 5)
		v.SetDefault("loss-epsilon", "0.01")
		v.SetDefault("loss-flag-threshold", "10")
		v.SetDefault("serial-threshold", 3)
		v.SetDefault("loss-threshold", "10")
		v.SetDefault("victim-threshold", 5)
		v.SetDefault("profiteer-threshold", "10")
		v.SetDefault("loss-risk-threshold", "50")
		v.SetDefault("coin-id", "avalanche-2")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return AnalyzeConfig{}, err
	}

	cfg := AnalyzeConfig{
		ExplorerURL:    v.GetString("explorer"),
		ExplorerAPIKey: v.GetString("explorer-key"),
		RPCURL:         v.GetString("rpc"),
		RateLimit:      v.GetFloat64("rate-limit"),

		Wallets:          getStringSlice(v, "wallet"),
		FactoryAddresses: getStringSlice(v, "factory"),
		KnownActorsPath:  v.GetString("known-actors"),

		BlacklistPath: v.GetString("blacklist"),
		PGDSN:         v.GetString("pg-dsn"),

		Workers:       v.GetInt("workers"),
		TokenDecimals: v.GetInt("decimals"),
		BlockWindow:   v.GetUint64("block-window"),
		Interval:      v.GetDuration("interval"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),

		MaxTimeToDump:     v.GetDuration("max-time-to-dump"),
		MinBuyLimit:       v.GetString("min-buy-limit"),
		BondingTime:       v.GetDuration("bonding-time"),
		MinVictimsForFlag: v.GetInt("min-victims"),
		LossEpsilon:       v.GetString("loss-epsilon"),
		LossFlagThreshold: v.GetString("loss-flag-threshold"),

		SerialThreshold:    v.GetInt("serial-threshold"),
		LossThreshold:      v.GetString("loss-threshold"),
		VictimThreshold:    v.GetInt("victim-threshold"),
		ProfiteerThreshold: v.GetString("profiteer-threshold"),
		LossRiskThreshold:  v.GetString("loss-risk-threshold"),

		PriceURL: v.GetString("price-url"),
		CoinID:   v.GetString("coin-id"),

		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, setDefaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if setDefaults != nil {
		setDefaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
