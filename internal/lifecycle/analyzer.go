package lifecycle

import (
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

const (
	rugPointsPerViolation = 20
	rugPointsVictims      = 30
	rugPointsLosses       = 30
	rugScoreMax           = 100
)

// Config holds the thresholds that drive violation detection. Amount
// thresholds are in token base units.
type Config struct {
	MaxTimeToDump       uint64
	MinBuyLimit         *big.Int
	BondingTimeEstimate uint64
	MinVictimsForFlag   int
	LossEpsilon         *big.Int
	LossFlagThreshold   *big.Int
}

// Validate rejects impossible thresholds before any analysis starts.
func (c Config) Validate() error {
	if c.MinBuyLimit == nil || c.MinBuyLimit.Sign() < 0 {
		return fmt.Errorf("min buy limit must be a non-negative amount")
	}
	if c.MinVictimsForFlag < 0 {
		return fmt.Errorf("min victims for flag must be >= 0")
	}
	if c.LossEpsilon == nil || c.LossEpsilon.Sign() < 0 {
		return fmt.Errorf("loss epsilon must be a non-negative amount")
	}
	if c.LossFlagThreshold == nil || c.LossFlagThreshold.Sign() < 0 {
		return fmt.Errorf("loss flag threshold must be a non-negative amount")
	}
	return nil
}

// Analyzer turns a token's transfer history into a lifecycle report.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

// NewAnalyzer builds an Analyzer, failing fast on invalid thresholds.
func NewAnalyzer(cfg Config, logger *zap.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lifecycle config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger}, nil
}

type counterparty struct {
	spent    *big.Int
	received *big.Int
}

// Analyze produces the lifecycle report for one token. Events must already
// be normalized; they are sorted ascending here because elapsed-time checks
// depend on order. Empty input yields an empty report, never an error.
func (a *Analyzer) Analyze(tokenID, deployer string, deploymentTime uint64, events []model.TransferEvent) model.TokenLifecycleReport {
	deployer, err := normalize.Address(deployer)
	if err != nil {
		a.logger.Warn("invalid deployer address", zap.String("token", tokenID), zap.Error(err))
	}

	sorted := make([]model.TransferEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].Block < sorted[j].Block
	})

	report := model.TokenLifecycleReport{
		TokenID:         tokenID,
		Deployer:        deployer,
		DeploymentTime:  deploymentTime,
		TotalSelfBought: big.NewInt(0),
		TotalSold:       big.NewInt(0),
		TotalLosses:     big.NewInt(0),
	}

	buyers := make(map[string]*counterparty)

	for _, ev := range sorted {
		if ev.Value == nil || ev.Value.Sign() <= 0 {
			continue
		}

		elapsed := int64(ev.Timestamp) - int64(deploymentTime)

		switch {
		case ev.From == deployer:
			report.DeployerSells = append(report.DeployerSells, model.DeployerTrade{
				Timestamp:      ev.Timestamp,
				Amount:         new(big.Int).Set(ev.Value),
				TimeFromLaunch: elapsed,
			})
			report.TotalSold.Add(report.TotalSold, ev.Value)
		case ev.To == deployer:
			report.DeployerBuys = append(report.DeployerBuys, model.DeployerTrade{
				Timestamp:      ev.Timestamp,
				Amount:         new(big.Int).Set(ev.Value),
				TimeFromLaunch: elapsed,
			})
			report.TotalSelfBought.Add(report.TotalSelfBought, ev.Value)
		}

		if ev.To != deployer && ev.From != ev.To {
			buyer := buyers[ev.To]
			if buyer == nil {
				buyer = &counterparty{spent: big.NewInt(0), received: big.NewInt(0)}
				buyers[ev.To] = buyer
			}
			buyer.spent.Add(buyer.spent, ev.Value)
		}
		if ev.From != deployer {
			if buyer, ok := buyers[ev.From]; ok {
				buyer.received.Add(buyer.received, ev.Value)
			}
		}
	}

	report.Victims, report.TotalLosses = a.collectVictims(buyers)
	report.Violations = a.detectViolations(report)
	report.RugScore = a.rugScore(report)

	return report
}

// collectVictims keeps counterparties whose net loss exceeds the epsilon,
// sorted by address so repeated runs produce identical reports.
func (a *Analyzer) collectVictims(buyers map[string]*counterparty) ([]model.Victim, *big.Int) {
	addrs := make([]string, 0, len(buyers))
	for addr := range buyers {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var victims []model.Victim
	total := big.NewInt(0)
	for _, addr := range addrs {
		buyer := buyers[addr]
		loss := new(big.Int).Sub(buyer.spent, buyer.received)
		if loss.Cmp(a.cfg.LossEpsilon) <= 0 {
			continue
		}
		victims = append(victims, model.Victim{Address: addr, Loss: loss})
		total.Add(total, loss)
	}
	return victims, total
}

func (a *Analyzer) detectViolations(report model.TokenLifecycleReport) []model.Violation {
	var violations []model.Violation

	for _, sell := range report.DeployerSells {
		if sell.TimeFromLaunch >= 0 && uint64(sell.TimeFromLaunch) <= a.cfg.MaxTimeToDump {
			violations = append(violations, model.Violation{
				Kind:      model.ViolationQuickDump,
				Severity:  model.SeverityHigh,
				Detail:    fmt.Sprintf("dumped %s within %ds of launch", sell.Amount.String(), sell.TimeFromLaunch),
				Timestamp: sell.Timestamp,
			})
		}
	}

	if report.TotalSelfBought.Cmp(a.cfg.MinBuyLimit) >= 0 && report.TotalSelfBought.Sign() > 0 {
		violations = append(violations, model.Violation{
			Kind:     model.ViolationSelfPump,
			Severity: model.SeverityHigh,
			Detail:   fmt.Sprintf("bought %s of own token", report.TotalSelfBought.String()),
		})
	}

	earlySold := big.NewInt(0)
	for _, sell := range report.DeployerSells {
		if sell.TimeFromLaunch >= 0 && uint64(sell.TimeFromLaunch) < a.cfg.BondingTimeEstimate {
			earlySold.Add(earlySold, sell.Amount)
		}
	}
	if earlySold.Sign() > 0 {
		violations = append(violations, model.Violation{
			Kind:     model.ViolationPreBondSell,
			Severity: model.SeverityCritical,
			Detail:   fmt.Sprintf("sold %s before bonding period", earlySold.String()),
		})
	}

	return violations
}

func (a *Analyzer) rugScore(report model.TokenLifecycleReport) int {
	score := rugPointsPerViolation * len(report.Violations)
	if len(report.Victims) >= a.cfg.MinVictimsForFlag && a.cfg.MinVictimsForFlag > 0 {
		score += rugPointsVictims
	}
	if report.TotalLosses.Cmp(a.cfg.LossFlagThreshold) > 0 {
		score += rugPointsLosses
	}
	if score > rugScoreMax {
		score = rugScoreMax
	}
	return score
}
