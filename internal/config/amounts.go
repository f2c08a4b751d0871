package config

import (
	"fmt"
	"math/big"
	"strings"

	"walletScope/internal/lifecycle"
	"walletScope/internal/risk"
)

// ParseAmount converts a decimal token amount like "5.0" into base units.
// Fractional parts beyond the token's precision are rejected.
func ParseAmount(input string, decimals int) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must be >= 0")
	}

	rat, ok := new(big.Rat).SetString(input)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", input, decimals)
	}
	return scaled.Num(), nil
}

// Lifecycle converts the loaded thresholds into the analyzer's config,
// scaling token amounts to base units.
func (c AnalyzeConfig) Lifecycle() (lifecycle.Config, error) {
	minBuy, err := ParseAmount(c.MinBuyLimit, c.TokenDecimals)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("min-buy-limit: %w", err)
	}
	epsilon, err := ParseAmount(c.LossEpsilon, c.TokenDecimals)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("loss-epsilon: %w", err)
	}
	lossFlag, err := ParseAmount(c.LossFlagThreshold, c.TokenDecimals)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("loss-flag-threshold: %w", err)
	}

	return lifecycle.Config{
		MaxTimeToDump:       uint64(c.MaxTimeToDump.Seconds()),
		MinBuyLimit:         minBuy,
		BondingTimeEstimate: uint64(c.BondingTime.Seconds()),
		MinVictimsForFlag:   c.MinVictimsForFlag,
		LossEpsilon:         epsilon,
		LossFlagThreshold:   lossFlag,
	}, nil
}

// Risk converts the loaded thresholds into the aggregator's config.
func (c AnalyzeConfig) Risk() (risk.Thresholds, error) {
	loss, err := ParseAmount(c.LossThreshold, c.TokenDecimals)
	if err != nil {
		return risk.Thresholds{}, fmt.Errorf("loss-threshold: %w", err)
	}
	profiteer, err := ParseAmount(c.ProfiteerThreshold, c.TokenDecimals)
	if err != nil {
		return risk.Thresholds{}, fmt.Errorf("profiteer-threshold: %w", err)
	}
	lossRisk, err := ParseAmount(c.LossRiskThreshold, c.TokenDecimals)
	if err != nil {
		return risk.Thresholds{}, fmt.Errorf("loss-risk-threshold: %w", err)
	}

	return risk.Thresholds{
		SerialThreshold:    c.SerialThreshold,
		LossThreshold:      loss,
		VictimThreshold:    c.VictimThreshold,
		ProfiteerThreshold: profiteer,
		LossRiskThreshold:  lossRisk,
	}, nil
}
