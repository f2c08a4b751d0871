package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ClusterConfig holds configuration for the cluster command.
type ClusterConfig struct {
	ExplorerURL    string
	ExplorerAPIKey string
	RPCURL         string
	RateLimit      float64

	Token       string
	SeedWallets []string
	Out         string

	ExpansionThreshold         float64
	EarlyBuyerLimit            int
	SecondaryActivityThreshold int
	BlockWindow                uint64

	LogLevel string
}

// LoadCluster merges config file, environment variables, and flags into
// ClusterConfig.
func LoadCluster(cfgFile string, flags *pflag.FlagSet) (ClusterConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("rate-limit", 4.0)
		v.SetDefault("out", "./data/cluster.json")
		v.SetDefault("expansion-threshold", 0.4)
		v.SetDefault("early-buyer-limit", 20)
		v.SetDefault("secondary-activity-threshold", 100)
		v.SetDefault("block-window", uint64(100_000))
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ClusterConfig{}, err
	}

	cfg := ClusterConfig{
		ExplorerURL:    v.GetString("explorer"),
		ExplorerAPIKey: v.GetString("explorer-key"),
		RPCURL:         v.GetString("rpc"),
		RateLimit:      v.GetFloat64("rate-limit"),

		Token:       v.GetString("token"),
		SeedWallets: getStringSlice(v, "seed"),
		Out:         v.GetString("out"),

		ExpansionThreshold:         v.GetFloat64("expansion-threshold"),
		EarlyBuyerLimit:            v.GetInt("early-buyer-limit"),
		SecondaryActivityThreshold: v.GetInt("secondary-activity-threshold"),
		BlockWindow:                v.GetUint64("block-window"),

		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}
