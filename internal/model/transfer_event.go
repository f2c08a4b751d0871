package model

import "math/big"

// TransferEvent is a single token transfer, canonicalized for analysis.
// Value is the raw amount in base units.
type TransferEvent struct {
	From      string
	To        string
	Value     *big.Int
	Block     uint64
	Timestamp uint64
}

// TransactionRecord is a normal (non-token) transaction as reported by the
// scan API. ContractAddress is set on contract-creation transactions.
type TransactionRecord struct {
	Hash            string
	From            string
	To              string
	ContractAddress string
	Value           *big.Int
	Block           uint64
	Timestamp       uint64
}

// ContractCreation describes who deployed a contract and when.
type ContractCreation struct {
	Deployer  string
	TxHash    string
	Block     uint64
	Timestamp uint64
}
