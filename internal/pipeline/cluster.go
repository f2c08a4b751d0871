package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"walletScope/internal/graph"
	"walletScope/internal/model"
	"walletScope/internal/normalize"
	"walletScope/internal/similarity"
)

// ClusterConfig holds settings for entity-linkage runs.
type ClusterConfig struct {
	// ExpansionThreshold is the minimum mean similarity for a suggestion.
	ExpansionThreshold float64
	// EarlyBuyerLimit caps how many of a token's first buyers become
	// linkage candidates.
	EarlyBuyerLimit int
	// SecondaryActivityThreshold is the transaction count below which a
	// deployer-funded wallet looks like a throwaway.
	SecondaryActivityThreshold int
}

// PairScore is one scored wallet pair, flattened for reports.
type PairScore struct {
	WalletA string  `json:"wallet_a"`
	WalletB string  `json:"wallet_b"`
	Score   float64 `json:"score"`
}

// ClusterReport is the result of one entity-linkage run over a token.
type ClusterReport struct {
	Token        string                  `json:"token"`
	Candidates   []string                `json:"candidates"`
	PairScores   []PairScore             `json:"pair_scores"`
	WalletScores map[string]float64      `json:"wallet_scores"`
	Suggestions  []similarity.Suggestion `json:"suggestions,omitempty"`
}

// ClusterRunner scores wallet linkage over a token's transfer graph.
type ClusterRunner struct {
	cfg    ClusterConfig
	data   ChainData
	logger *zap.Logger
}

func NewClusterRunner(cfg ClusterConfig, data ChainData, logger *zap.Logger) (*ClusterRunner, error) {
	if data == nil {
		return nil, fmt.Errorf("chain data source is nil")
	}
	if cfg.ExpansionThreshold <= 0 {
		cfg.ExpansionThreshold = similarity.DefaultExpansionThreshold
	}
	if cfg.EarlyBuyerLimit <= 0 {
		cfg.EarlyBuyerLimit = 20
	}
	if cfg.SecondaryActivityThreshold <= 0 {
		cfg.SecondaryActivityThreshold = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClusterRunner{cfg: cfg, data: data, logger: logger}, nil
}

// Run builds the token's transfer graph and scores the seed wallets plus
// discovered candidates against it.
func (c *ClusterRunner) Run(ctx context.Context, token string, seed []string) (ClusterReport, error) {
	tokenAddr, err := normalize.Address(token)
	if err != nil {
		return ClusterReport{}, fmt.Errorf("token address: %w", err)
	}
	seedWallets, err := normalize.Addresses(seed)
	if err != nil {
		return ClusterReport{}, fmt.Errorf("seed wallets: %w", err)
	}

	transfers, err := c.data.TokenTransfers(ctx, tokenAddr)
	if err != nil {
		return ClusterReport{}, fmt.Errorf("token transfers: %w", err)
	}
	events := normalize.Events(transfers)
	g := graph.Build(events)

	discovered, err := c.Candidates(ctx, tokenAddr, events)
	if err != nil {
		return ClusterReport{}, err
	}
	candidates := append(append([]string{}, seedWallets...), discovered...)
	candidates, err = normalize.Addresses(candidates)
	if err != nil {
		return ClusterReport{}, fmt.Errorf("candidates: %w", err)
	}

	result := similarity.Score(g, candidates)

	report := ClusterReport{
		Token:        tokenAddr,
		Candidates:   candidates,
		WalletScores: result.WalletScores,
		Suggestions:  similarity.SuggestExpansion(result, seedWallets, c.cfg.ExpansionThreshold),
	}
	for pair, score := range result.PairScores {
		report.PairScores = append(report.PairScores, PairScore{WalletA: pair.A, WalletB: pair.B, Score: score})
	}
	sort.Slice(report.PairScores, func(i, j int) bool {
		if report.PairScores[i].Score != report.PairScores[j].Score {
			return report.PairScores[i].Score > report.PairScores[j].Score
		}
		if report.PairScores[i].WalletA != report.PairScores[j].WalletA {
			return report.PairScores[i].WalletA < report.PairScores[j].WalletA
		}
		return report.PairScores[i].WalletB < report.PairScores[j].WalletB
	})

	c.logger.Info("cluster run complete",
		zap.String("token", tokenAddr),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(report.Suggestions)))
	return report, nil
}

// Candidates assembles linkage candidates for a token: its deployer, its
// earliest buyers, and low-activity wallets the deployer funded directly.
func (c *ClusterRunner) Candidates(ctx context.Context, token string, events []model.TransferEvent) ([]string, error) {
	creation, err := c.data.ContractCreation(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("contract creation: %w", err)
	}

	candidates := []string{creation.Deployer}
	candidates = append(candidates, earlyBuyers(events, creation.Deployer, c.cfg.EarlyBuyerLimit)...)

	secondary, err := c.secondaryWallets(ctx, creation.Deployer)
	if err != nil {
		// Funded-wallet discovery is best effort; the graph features carry
		// the signal even without it.
		c.logger.Warn("secondary wallet discovery failed",
			zap.String("deployer", creation.Deployer), zap.Error(err))
	} else {
		candidates = append(candidates, secondary...)
	}

	return normalize.Addresses(candidates)
}

// earlyBuyers returns the first distinct recipients of a token, in order
// of appearance, skipping the deployer and the burn address.
func earlyBuyers(events []model.TransferEvent, deployer string, limit int) []string {
	var buyers []string
	seen := map[string]struct{}{deployer: {}}
	for _, ev := range events {
		if normalize.IsZero(ev.To) {
			continue
		}
		if _, ok := seen[ev.To]; ok {
			continue
		}
		seen[ev.To] = struct{}{}
		buyers = append(buyers, ev.To)
		if len(buyers) >= limit {
			break
		}
	}
	return buyers
}

// secondaryWallets finds wallets the deployer sent native value to that
// have almost no history of their own.
func (c *ClusterRunner) secondaryWallets(ctx context.Context, deployer string) ([]string, error) {
	txs, err := c.data.NormalTransactions(ctx, deployer)
	if err != nil {
		return nil, fmt.Errorf("deployer txs: %w", err)
	}
	txs = normalize.Transactions(txs)

	seen := map[string]struct{}{deployer: {}}
	var wallets []string
	for _, tx := range txs {
		if tx.From != deployer || tx.To == "" || normalize.IsZero(tx.To) {
			continue
		}
		if tx.Value == nil || tx.Value.Sign() <= 0 {
			continue
		}
		if _, ok := seen[tx.To]; ok {
			continue
		}
		seen[tx.To] = struct{}{}

		recipientTxs, err := c.data.NormalTransactions(ctx, tx.To)
		if err != nil {
			c.logger.Debug("recipient history lookup failed", zap.String("wallet", tx.To), zap.Error(err))
			continue
		}
		if len(recipientTxs) < c.cfg.SecondaryActivityThreshold {
			wallets = append(wallets, tx.To)
		}
	}
	return wallets, nil
}
