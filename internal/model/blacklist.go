package model

// EntryMetrics is the metrics snapshot persisted with a blacklist entry.
// Loss amounts are decimal strings so precision survives JSON round-trips.
type EntryMetrics struct {
	TokensDeployed  int     `json:"tokens_deployed"`
	UniqueVictims   int     `json:"unique_victims"`
	TotalLosses     string  `json:"total_losses"`
	TotalLossesUSD  float64 `json:"total_losses_usd"`
	AverageRugScore float64 `json:"average_rug_score"`
	RiskScore       int     `json:"risk_score"`
}

// EntryEvidence is the evidence snapshot backing a blacklist decision.
type EntryEvidence struct {
	Tokens     []string    `json:"tokens,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// BlacklistEntry is the persisted record for one wallet, keyed uniquely by
// canonical address. Upserts replace the whole entry.
type BlacklistEntry struct {
	WalletAddress  string        `json:"wallet_address"`
	DisplayName    string        `json:"display_name,omitempty"`
	Reasons        []string      `json:"reasons"`
	Metrics        EntryMetrics  `json:"metrics"`
	Evidence       EntryEvidence `json:"evidence"`
	AddedTimestamp string        `json:"added_timestamp"`
	LastUpdated    string        `json:"last_updated"`
}

// DocumentMetadata describes the persisted blacklist document.
type DocumentMetadata struct {
	LastUpdated  string `json:"last_updated"`
	TotalEntries int    `json:"total_entries"`
	Version      string `json:"version"`
}

// BlacklistDocument is the on-disk shape of the file-backed store.
type BlacklistDocument struct {
	Entries  []BlacklistEntry `json:"entries"`
	Metadata DocumentMetadata `json:"metadata"`
}
