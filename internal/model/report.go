package model

import "math/big"

// DeployerTrade is one deployer-side buy or sell of their own token.
type DeployerTrade struct {
	Timestamp      uint64
	Amount         *big.Int
	TimeFromLaunch int64
}

// Victim is a counterparty whose cumulative spend exceeded its proceeds.
type Victim struct {
	Address string
	Loss    *big.Int
}

// TokenLifecycleReport is the full analysis of one token's life from
// deployment onward. It is immutable once produced; re-running the analyzer
// on the same events yields an identical report.
type TokenLifecycleReport struct {
	TokenID         string
	Deployer        string
	DeploymentTime  uint64
	DeployerBuys    []DeployerTrade
	DeployerSells   []DeployerTrade
	TotalSelfBought *big.Int
	TotalSold       *big.Int
	Victims         []Victim
	TotalLosses     *big.Int
	Violations      []Violation
	RugScore        int
}
