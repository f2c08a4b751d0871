package model

import "math/big"

// WalletProfile is the wallet-level aggregate over all analyzed tokens.
// It is recomputed in full on each analysis run, never patched in place.
type WalletProfile struct {
	Address         string                `json:"address"`
	TokensDeployed  int                   `json:"tokens_deployed"`
	Tokens          []string              `json:"tokens,omitempty"`
	ViolationCounts map[ViolationKind]int `json:"violation_counts,omitempty"`
	Violations      []Violation           `json:"violations,omitempty"`
	UniqueVictims   int                   `json:"unique_victims"`
	TotalLosses     *big.Int              `json:"total_losses"`
	AverageRugScore float64               `json:"average_rug_score"`
	RiskScore       int                   `json:"risk_score"`
	Blacklisted     bool                  `json:"blacklisted"`
	Reasons         []string              `json:"reasons,omitempty"`
	IncompleteData  bool                  `json:"incomplete_data,omitempty"`
}
