package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"walletScope/internal/blacklist"
	"walletScope/internal/lifecycle"
	"walletScope/internal/model"
	"walletScope/internal/normalize"
	"walletScope/internal/risk"
)

// ChainData is the slice of the explorer API the runner needs. It is an
// interface so tests can drive the runner without a live endpoint.
type ChainData interface {
	NormalTransactions(ctx context.Context, address string) ([]model.TransactionRecord, error)
	InternalTransactions(ctx context.Context, address string) ([]model.TransactionRecord, error)
	TokenTransfers(ctx context.Context, token string) ([]model.TransferEvent, error)
	ContractCreation(ctx context.Context, contract string) (model.ContractCreation, error)
}

// PriceSource resolves a historical USD price for a unix timestamp.
type PriceSource interface {
	Price(ctx context.Context, timestamp uint64) float64
}

// RunConfig holds runtime settings for wallet analysis.
type RunConfig struct {
	Workers          int
	FactoryAddresses []string
	TokenDecimals    int
	KnownActorsPath  string
	MaxRetries       int
	RetryBackoff     time.Duration
}

// Summary aggregates one analysis batch. Profiles are sorted by address.
type Summary struct {
	Scanned  int
	Flagged  int
	Failed   int
	Profiles []model.WalletProfile
}

// Merge folds another batch into this summary.
func (s *Summary) Merge(other Summary) {
	s.Scanned += other.Scanned
	s.Flagged += other.Flagged
	s.Failed += other.Failed
	s.Profiles = append(s.Profiles, other.Profiles...)
}

// Runner walks wallets through token discovery, lifecycle analysis, risk
// aggregation, and the blacklist store.
type Runner struct {
	cfg         RunConfig
	data        ChainData
	store       blacklist.Store
	analyzer    *lifecycle.Analyzer
	aggregator  *risk.Aggregator
	prices      PriceSource
	knownActors map[string]string
	factories   map[string]struct{}
	logger      *zap.Logger
	now         func() time.Time
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(
	cfg RunConfig,
	data ChainData,
	store blacklist.Store,
	analyzer *lifecycle.Analyzer,
	aggregator *risk.Aggregator,
	prices PriceSource,
	logger *zap.Logger,
) (*Runner, error) {
	if data == nil {
		return nil, fmt.Errorf("chain data source is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("blacklist store is nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("lifecycle analyzer is nil")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("risk aggregator is nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TokenDecimals <= 0 {
		cfg.TokenDecimals = 18
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	knownActors := map[string]string{}
	if cfg.KnownActorsPath != "" {
		loaded, err := LoadKnownActors(cfg.KnownActorsPath)
		if err != nil {
			return nil, err
		}
		knownActors = loaded
	}

	factories := make(map[string]struct{}, len(cfg.FactoryAddresses))
	for _, addr := range cfg.FactoryAddresses {
		canonical, err := normalize.Address(addr)
		if err != nil {
			return nil, fmt.Errorf("factory address: %w", err)
		}
		factories[canonical] = struct{}{}
	}

	return &Runner{
		cfg:         cfg,
		data:        data,
		store:       store,
		analyzer:    analyzer,
		aggregator:  aggregator,
		prices:      prices,
		knownActors: knownActors,
		factories:   factories,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// AnalyzeWallets runs the full analysis for each wallet concurrently. A
// wallet whose collaborator calls fail is counted and logged but never
// stops the batch.
func (r *Runner) AnalyzeWallets(ctx context.Context, wallets []string) (Summary, error) {
	targets, err := normalize.Addresses(wallets)
	if err != nil {
		return Summary{}, fmt.Errorf("wallet list: %w", err)
	}

	var mu sync.Mutex
	summary := Summary{}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Workers)
	for _, wallet := range targets {
		wallet := wallet
		group.Go(func() error {
			profile, err := r.analyzeWallet(gctx, wallet)

			mu.Lock()
			defer mu.Unlock()
			summary.Scanned++
			if err != nil {
				summary.Failed++
				r.logger.Warn("wallet analysis failed", zap.String("wallet", wallet), zap.Error(err))
				return nil
			}
			if profile.Blacklisted {
				summary.Flagged++
			}
			summary.Profiles = append(summary.Profiles, profile)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	sort.Slice(summary.Profiles, func(i, j int) bool {
		return summary.Profiles[i].Address < summary.Profiles[j].Address
	})

	r.logger.Info("batch complete",
		zap.Int("scanned", summary.Scanned),
		zap.Int("flagged", summary.Flagged),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (r *Runner) analyzeWallet(ctx context.Context, wallet string) (model.WalletProfile, error) {
	tokens, err := r.deployedTokens(ctx, wallet)
	if err != nil {
		return model.WalletProfile{}, fmt.Errorf("discover tokens: %w", err)
	}

	incomplete := false
	reports := make([]model.TokenLifecycleReport, 0, len(tokens))
	for _, token := range tokens {
		report, err := r.analyzeToken(ctx, wallet, token)
		if err != nil {
			// One missing token must not sink the wallet; the profile is
			// marked so a later run can fill the gap.
			incomplete = true
			r.logger.Warn("token analysis incomplete",
				zap.String("wallet", wallet),
				zap.String("token", token.address),
				zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	flags := risk.ExternalFlags{}
	if note, ok := r.knownActors[wallet]; ok {
		flags.KnownBadActor = true
		flags.KnownBadActorNote = note
	}
	prior, found, err := r.store.Get(ctx, wallet)
	if err != nil {
		incomplete = true
		r.logger.Warn("blacklist lookup failed", zap.String("wallet", wallet), zap.Error(err))
	} else if found {
		flags.PreviouslyFlagged = true
	}

	profile := r.aggregator.Aggregate(wallet, reports, flags)
	profile.IncompleteData = incomplete

	if profile.Blacklisted {
		entry := r.buildEntry(ctx, profile, prior, found)
		if err := r.store.Upsert(ctx, entry); err != nil {
			return profile, fmt.Errorf("upsert blacklist: %w", err)
		}
		r.logger.Info("wallet blacklisted",
			zap.String("wallet", wallet),
			zap.Int("risk_score", profile.RiskScore),
			zap.Strings("reasons", profile.Reasons))
	}
	return profile, nil
}

type deployedToken struct {
	address    string
	deployedAt uint64
}

// deployedTokens finds contracts the wallet created, both directly and
// through launchpad factories seen in its internal transactions.
func (r *Runner) deployedTokens(ctx context.Context, wallet string) ([]deployedToken, error) {
	normalTxs, err := r.data.NormalTransactions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("normal txs: %w", err)
	}
	internalTxs, err := r.data.InternalTransactions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("internal txs: %w", err)
	}

	seen := make(map[string]struct{})
	var tokens []deployedToken
	add := func(address string, deployedAt uint64) {
		canonical, err := normalize.Address(address)
		if err != nil {
			return
		}
		if _, ok := seen[canonical]; ok {
			return
		}
		seen[canonical] = struct{}{}
		tokens = append(tokens, deployedToken{address: canonical, deployedAt: deployedAt})
	}

	for _, tx := range normalTxs {
		if tx.To == "" && tx.ContractAddress != "" {
			add(tx.ContractAddress, tx.Timestamp)
		}
	}
	for _, tx := range internalTxs {
		if tx.ContractAddress == "" {
			continue
		}
		if len(r.factories) > 0 {
			if _, ok := r.factories[strings.ToLower(tx.From)]; !ok {
				continue
			}
		}
		add(tx.ContractAddress, tx.Timestamp)
	}
	return tokens, nil
}

func (r *Runner) analyzeToken(ctx context.Context, wallet string, token deployedToken) (model.TokenLifecycleReport, error) {
	var transfers []model.TransferEvent
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		transfers, err = r.data.TokenTransfers(ctx, token.address)
		return err
	})
	if err != nil {
		return model.TokenLifecycleReport{}, fmt.Errorf("token transfers: %w", err)
	}
	events := normalize.Events(transfers)
	return r.analyzer.Analyze(token.address, wallet, token.deployedAt, events), nil
}

// buildEntry converts a profile into its persisted form. The original
// added_timestamp survives re-flagging; everything else is replaced.
func (r *Runner) buildEntry(ctx context.Context, profile model.WalletProfile, prior model.BlacklistEntry, hadPrior bool) model.BlacklistEntry {
	now := r.now().UTC().Format(time.RFC3339)
	added := now
	if hadPrior && prior.AddedTimestamp != "" {
		added = prior.AddedTimestamp
	}

	lossesUSD := 0.0
	if r.prices != nil && profile.TotalLosses.Sign() > 0 {
		price := r.prices.Price(ctx, uint64(r.now().Unix()))
		lossesUSD = amountToFloat(profile.TotalLosses, r.cfg.TokenDecimals) * price
	}

	return model.BlacklistEntry{
		WalletAddress: profile.Address,
		Reasons:       profile.Reasons,
		Metrics: model.EntryMetrics{
			TokensDeployed:  profile.TokensDeployed,
			UniqueVictims:   profile.UniqueVictims,
			TotalLosses:     profile.TotalLosses.String(),
			TotalLossesUSD:  lossesUSD,
			AverageRugScore: profile.AverageRugScore,
			RiskScore:       profile.RiskScore,
		},
		Evidence: model.EntryEvidence{
			Tokens:     profile.Tokens,
			Violations: profile.Violations,
		},
		AddedTimestamp: added,
		LastUpdated:    now,
	}
}

func amountToFloat(amount *big.Int, decimals int) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).SetInt(amount)
	out, _ := value.Quo(value, scale).Float64()
	return out
}

// LoadKnownActors reads a JSON map of wallet address to annotation.
func LoadKnownActors(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read known actors: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse known actors: %w", err)
	}

	actors := make(map[string]string, len(raw))
	for address, note := range raw {
		canonical, err := normalize.Address(address)
		if err != nil {
			return nil, fmt.Errorf("known actors entry %q: %w", address, err)
		}
		actors[canonical] = note
	}
	return actors, nil
}
