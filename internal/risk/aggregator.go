package risk

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

const (
	riskPointsKnownGrifter      = 50
	riskPointsPreviouslyFlagged = 40
	riskPointsSerialDeployer    = 30
	riskPointsHighProfiteer     = 20
	riskPointsManyVictims       = 20
	riskPointsHeavyLosses       = 20
	riskPointsHighRugScore      = 10
	riskScoreMax                = 100

	highRugScore        = 60.0
	victimRiskThreshold = 10
)

// Thresholds drives both the blacklist decision and the risk score.
// Amount thresholds are in token base units.
type Thresholds struct {
	SerialThreshold    int
	LossThreshold      *big.Int
	VictimThreshold    int
	ProfiteerThreshold *big.Int
	LossRiskThreshold  *big.Int
}

// Validate rejects impossible thresholds before any analysis starts.
func (t Thresholds) Validate() error {
	if t.SerialThreshold <= 0 {
		return fmt.Errorf("serial threshold must be > 0")
	}
	if t.LossThreshold == nil || t.LossThreshold.Sign() < 0 {
		return fmt.Errorf("loss threshold must be a non-negative amount")
	}
	if t.VictimThreshold <= 0 {
		return fmt.Errorf("victim threshold must be > 0")
	}
	if t.ProfiteerThreshold == nil || t.ProfiteerThreshold.Sign() < 0 {
		return fmt.Errorf("profiteer threshold must be a non-negative amount")
	}
	if t.LossRiskThreshold == nil || t.LossRiskThreshold.Sign() < 0 {
		return fmt.Errorf("loss risk threshold must be a non-negative amount")
	}
	return nil
}

// ExternalFlags carries signals from collaborators outside the transfer
// analysis. A failed collaborator call simply leaves its flag unset.
type ExternalFlags struct {
	KnownBadActor     bool
	KnownBadActorNote string
	PreviouslyFlagged bool
}

// Aggregator folds per-token lifecycle reports into a wallet profile.
type Aggregator struct {
	thr    Thresholds
	logger *zap.Logger
}

// NewAggregator builds an Aggregator, failing fast on invalid thresholds.
func NewAggregator(thr Thresholds, logger *zap.Logger) (*Aggregator, error) {
	if err := thr.Validate(); err != nil {
		return nil, fmt.Errorf("risk thresholds: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{thr: thr, logger: logger}, nil
}

// Aggregate recomputes the full wallet profile from its lifecycle reports.
// Missing inputs degrade to zero contributions; it never fails.
func (g *Aggregator) Aggregate(address string, reports []model.TokenLifecycleReport, flags ExternalFlags) model.WalletProfile {
	canonical, err := normalize.Address(address)
	if err != nil {
		g.logger.Warn("invalid wallet address", zap.String("address", address), zap.Error(err))
		canonical = address
	}

	profile := model.WalletProfile{
		Address:         canonical,
		TokensDeployed:  len(reports),
		ViolationCounts: make(map[model.ViolationKind]int),
		TotalLosses:     big.NewInt(0),
	}

	victims := make(map[string]struct{})
	rugTotal := 0.0
	for _, report := range reports {
		profile.Tokens = append(profile.Tokens, report.TokenID)
		for _, v := range report.Violations {
			profile.ViolationCounts[v.Kind]++
			profile.Violations = append(profile.Violations, v)
		}
		for _, victim := range report.Victims {
			victims[victim.Address] = struct{}{}
		}
		if report.TotalLosses != nil {
			profile.TotalLosses.Add(profile.TotalLosses, report.TotalLosses)
		}
		rugTotal += float64(report.RugScore)
	}
	profile.UniqueVictims = len(victims)
	if len(reports) > 0 {
		profile.AverageRugScore = rugTotal / float64(len(reports))
	}

	g.applyExternalFlags(&profile, flags)
	g.decideBlacklist(&profile)
	profile.RiskScore = g.riskScore(profile, flags)

	return profile
}

func (g *Aggregator) applyExternalFlags(profile *model.WalletProfile, flags ExternalFlags) {
	if flags.KnownBadActor {
		note := flags.KnownBadActorNote
		if note == "" {
			note = "listed in known bad actor source"
		}
		g.addViolation(profile, model.Violation{
			Kind:     model.ViolationKnownGrifter,
			Severity: model.SeverityCritical,
			Detail:   note,
		})
	}
	if flags.PreviouslyFlagged {
		g.addViolation(profile, model.Violation{
			Kind:     model.ViolationPreviouslyFlagged,
			Severity: model.SeverityCritical,
			Detail:   "already present in the blacklist",
		})
	}
	if profile.TokensDeployed >= g.thr.SerialThreshold {
		g.addViolation(profile, model.Violation{
			Kind:     model.ViolationSerialDeployer,
			Severity: model.SeverityHigh,
			Detail:   fmt.Sprintf("deployed %d tokens", profile.TokensDeployed),
		})
	}
	if profile.TotalLosses.Cmp(g.thr.ProfiteerThreshold) >= 0 && g.thr.ProfiteerThreshold.Sign() > 0 {
		g.addViolation(profile, model.Violation{
			Kind:     model.ViolationHighProfiteer,
			Severity: model.SeverityHigh,
			Detail:   fmt.Sprintf("extracted %s from buyers", profile.TotalLosses.String()),
		})
	}
}

func (g *Aggregator) addViolation(profile *model.WalletProfile, v model.Violation) {
	profile.ViolationCounts[v.Kind]++
	profile.Violations = append(profile.Violations, v)
}

// decideBlacklist applies the OR of the hard conditions. Every satisfied
// condition contributes its own reason so a decision is never unexplained.
func (g *Aggregator) decideBlacklist(profile *model.WalletProfile) {
	if profile.TokensDeployed >= g.thr.SerialThreshold {
		profile.Blacklisted = true
		profile.Reasons = append(profile.Reasons,
			fmt.Sprintf("serial deployer: %d tokens deployed", profile.TokensDeployed))
	}
	if profile.TotalLosses.Cmp(g.thr.LossThreshold) >= 0 && g.thr.LossThreshold.Sign() > 0 {
		profile.Blacklisted = true
		profile.Reasons = append(profile.Reasons,
			fmt.Sprintf("caused %s in buyer losses", profile.TotalLosses.String()))
	}
	if profile.UniqueVictims >= g.thr.VictimThreshold {
		profile.Blacklisted = true
		profile.Reasons = append(profile.Reasons,
			fmt.Sprintf("harmed %d unique victims", profile.UniqueVictims))
	}
	if profile.AverageRugScore >= highRugScore {
		profile.Blacklisted = true
		profile.Reasons = append(profile.Reasons,
			fmt.Sprintf("high rug score: %.1f/100", profile.AverageRugScore))
	}
}

func (g *Aggregator) riskScore(profile model.WalletProfile, flags ExternalFlags) int {
	score := 0
	if flags.KnownBadActor {
		score += riskPointsKnownGrifter
	}
	if flags.PreviouslyFlagged {
		score += riskPointsPreviouslyFlagged
	}
	if profile.TokensDeployed >= g.thr.SerialThreshold {
		score += riskPointsSerialDeployer
	}
	if profile.TotalLosses.Cmp(g.thr.ProfiteerThreshold) >= 0 && g.thr.ProfiteerThreshold.Sign() > 0 {
		score += riskPointsHighProfiteer
	}
	if profile.UniqueVictims >= victimRiskThreshold {
		score += riskPointsManyVictims
	}
	if profile.TotalLosses.Cmp(g.thr.LossRiskThreshold) >= 0 && g.thr.LossRiskThreshold.Sign() > 0 {
		score += riskPointsHeavyLosses
	}
	if profile.AverageRugScore >= highRugScore {
		score += riskPointsHighRugScore
	}
	if score > riskScoreMax {
		score = riskScoreMax
	}
	return score
}
