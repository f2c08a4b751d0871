package risk

import (
	"math/big"
	"reflect"
	"strings"
	"testing"

	"walletScope/internal/model"
)

const wallet = "0x1111111111111111111111111111111111111111"

func testThresholds() Thresholds {
	return Thresholds{
		SerialThreshold:    3,
		LossThreshold:      big.NewInt(10),
		VictimThreshold:    5,
		ProfiteerThreshold: big.NewInt(10),
		LossRiskThreshold:  big.NewInt(50),
	}
}

func newTestAggregator(t *testing.T, thr Thresholds) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(thr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return agg
}

func report(token string, rugScore int, losses int64, victims ...string) model.TokenLifecycleReport {
	r := model.TokenLifecycleReport{
		TokenID:         token,
		TotalLosses:     big.NewInt(losses),
		TotalSelfBought: big.NewInt(0),
		TotalSold:       big.NewInt(0),
		RugScore:        rugScore,
	}
	for _, v := range victims {
		r.Victims = append(r.Victims, model.Victim{Address: v, Loss: big.NewInt(1)})
	}
	return r
}

func TestNewAggregatorRejectsInvalidThresholds(t *testing.T) {
	thr := testThresholds()
	thr.SerialThreshold = 0
	if _, err := NewAggregator(thr, nil); err == nil {
		t.Fatalf("expected error for zero serial threshold")
	}

	thr = testThresholds()
	thr.LossThreshold = big.NewInt(-5)
	if _, err := NewAggregator(thr, nil); err == nil {
		t.Fatalf("expected error for negative loss threshold")
	}
}

func TestAggregateSerialDeployerOnly(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	// Three tokens, zero losses, zero victims.
	reports := []model.TokenLifecycleReport{
		report("0xaaa", 0, 0),
		report("0xbbb", 0, 0),
		report("0xccc", 0, 0),
	}

	profile := agg.Aggregate(wallet, reports, ExternalFlags{})
	if !profile.Blacklisted {
		t.Fatalf("expected blacklist for serial deployment")
	}
	if len(profile.Reasons) != 1 {
		t.Fatalf("expected exactly one reason, got %v", profile.Reasons)
	}
	if !strings.Contains(profile.Reasons[0], "serial deployer") {
		t.Fatalf("reason should cite serial deployment: %q", profile.Reasons[0])
	}
}

func TestAggregateNoReports(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	profile := agg.Aggregate(wallet, nil, ExternalFlags{})
	if profile.Blacklisted {
		t.Fatalf("empty history should not blacklist")
	}
	if profile.AverageRugScore != 0 {
		t.Fatalf("average rug score should be 0, got %f", profile.AverageRugScore)
	}
	if profile.RiskScore != 0 {
		t.Fatalf("risk score should be 0, got %d", profile.RiskScore)
	}
	if profile.TotalLosses.Sign() != 0 {
		t.Fatalf("total losses should be 0, got %s", profile.TotalLosses)
	}
}

func TestAggregateUnionsVictimsAcrossTokens(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	shared := "0x9999999999999999999999999999999999999999"
	reports := []model.TokenLifecycleReport{
		report("0xaaa", 0, 2, shared, "0x2222222222222222222222222222222222222222"),
		report("0xbbb", 0, 3, shared),
	}

	profile := agg.Aggregate(wallet, reports, ExternalFlags{})
	if profile.UniqueVictims != 2 {
		t.Fatalf("victims must be a union, got %d", profile.UniqueVictims)
	}
	if profile.TotalLosses.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("losses must sum, got %s", profile.TotalLosses)
	}
}

func TestAggregateAverageRugScoreTriggersBlacklist(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	reports := []model.TokenLifecycleReport{
		report("0xaaa", 80, 0),
		report("0xbbb", 40, 0),
	}

	profile := agg.Aggregate(wallet, reports, ExternalFlags{})
	if profile.AverageRugScore != 60 {
		t.Fatalf("average mismatch: %f", profile.AverageRugScore)
	}
	if !profile.Blacklisted {
		t.Fatalf("average rug score 60 should blacklist")
	}
}

func TestRiskScoreComponentsAndCap(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	// Known bad actor alone: +50.
	profile := agg.Aggregate(wallet, nil, ExternalFlags{KnownBadActor: true})
	if profile.RiskScore != 50 {
		t.Fatalf("known bad actor should score 50, got %d", profile.RiskScore)
	}

	// Everything at once must clamp to 100.
	victims := make([]string, 10)
	for i := range victims {
		victims[i] = "0x22222222222222222222222222222222222222" + string(rune('a'+i)) + string(rune('a'+i))
	}
	reports := []model.TokenLifecycleReport{
		report("0xaaa", 90, 60, victims...),
		report("0xbbb", 90, 0),
		report("0xccc", 90, 0),
	}
	profile = agg.Aggregate(wallet, reports, ExternalFlags{KnownBadActor: true, PreviouslyFlagged: true})
	if profile.RiskScore != 100 {
		t.Fatalf("risk score must cap at 100, got %d", profile.RiskScore)
	}
}

func TestAggregateBlacklistAlwaysHasReasons(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	reports := []model.TokenLifecycleReport{
		report("0xaaa", 0, 100),
	}

	profile := agg.Aggregate(wallet, reports, ExternalFlags{})
	if !profile.Blacklisted {
		t.Fatalf("losses over threshold should blacklist")
	}
	if len(profile.Reasons) == 0 {
		t.Fatalf("blacklist decision must carry reasons")
	}
}

func TestAggregateDeterministic(t *testing.T) {
	agg := newTestAggregator(t, testThresholds())

	reports := []model.TokenLifecycleReport{
		report("0xaaa", 40, 5, "0x2222222222222222222222222222222222222222"),
		report("0xbbb", 20, 7, "0x3333333333333333333333333333333333333333"),
	}

	first := agg.Aggregate(wallet, reports, ExternalFlags{KnownBadActor: true})
	second := agg.Aggregate(wallet, reports, ExternalFlags{KnownBadActor: true})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated aggregation differs:\n%+v\n%+v", first, second)
	}
}
