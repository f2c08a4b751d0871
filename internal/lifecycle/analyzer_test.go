package lifecycle

import (
	"math/big"
	"reflect"
	"testing"

	"walletScope/internal/model"
)

const (
	deployer = "0x1111111111111111111111111111111111111111"
	buyerA   = "0x2222222222222222222222222222222222222222"
	buyerB   = "0x3333333333333333333333333333333333333333"
	token    = "0x4444444444444444444444444444444444444444"
)

func testConfig() Config {
	return Config{
		MaxTimeToDump:       300,
		MinBuyLimit:         big.NewInt(5),
		BondingTimeEstimate: 600,
		MinVictimsForFlag:   5,
		LossEpsilon:         big.NewInt(0),
		LossFlagThreshold:   big.NewInt(10),
	}
}

func newTestAnalyzer(t *testing.T, cfg Config) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return analyzer
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MinBuyLimit = big.NewInt(-1)
	if _, err := NewAnalyzer(cfg, nil); err == nil {
		t.Fatalf("expected error for negative buy limit")
	}

	cfg = testConfig()
	cfg.LossEpsilon = nil
	if _, err := NewAnalyzer(cfg, nil); err == nil {
		t.Fatalf("expected error for nil epsilon")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	analyzer := newTestAnalyzer(t, testConfig())

	report := analyzer.Analyze(token, deployer, 1000, nil)
	if len(report.Victims) != 0 {
		t.Fatalf("expected no victims, got %d", len(report.Victims))
	}
	if len(report.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(report.Violations))
	}
	if report.RugScore != 0 {
		t.Fatalf("expected rug score 0, got %d", report.RugScore)
	}
}

func TestAnalyzeQuickDump(t *testing.T) {
	analyzer := newTestAnalyzer(t, testConfig())

	// Deployer sells the full 10-unit holding 60s after deployment.
	events := []model.TransferEvent{
		{From: deployer, To: buyerA, Value: big.NewInt(10), Block: 2, Timestamp: 1060},
	}

	report := analyzer.Analyze(token, deployer, 1000, events)

	var quickDumps []model.Violation
	for _, v := range report.Violations {
		if v.Kind == model.ViolationQuickDump {
			quickDumps = append(quickDumps, v)
		}
	}
	if len(quickDumps) != 1 {
		t.Fatalf("expected exactly one quick_dump, got %d", len(quickDumps))
	}
	if quickDumps[0].Severity != model.SeverityHigh {
		t.Fatalf("quick_dump severity should be HIGH, got %s", quickDumps[0].Severity)
	}
}

func TestAnalyzeSelfPump(t *testing.T) {
	analyzer := newTestAnalyzer(t, testConfig())

	events := []model.TransferEvent{
		{From: buyerA, To: deployer, Value: big.NewInt(3), Block: 1, Timestamp: 2000},
		{From: buyerB, To: deployer, Value: big.NewInt(4), Block: 2, Timestamp: 2100},
	}

	report := analyzer.Analyze(token, deployer, 1000, events)

	found := false
	for _, v := range report.Violations {
		if v.Kind == model.ViolationSelfPump {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected self_pump violation, got %+v", report.Violations)
	}
	if report.TotalSelfBought.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("total self bought mismatch: %s", report.TotalSelfBought)
	}
}

func TestAnalyzePreBondSellAggregatesAmount(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTimeToDump = 0
	analyzer := newTestAnalyzer(t, cfg)

	events := []model.TransferEvent{
		{From: deployer, To: buyerA, Value: big.NewInt(4), Block: 1, Timestamp: 1100},
		{From: deployer, To: buyerB, Value: big.NewInt(6), Block: 2, Timestamp: 1200},
		{From: deployer, To: buyerA, Value: big.NewInt(9), Block: 3, Timestamp: 5000},
	}

	report := analyzer.Analyze(token, deployer, 1000, events)

	var preBond *model.Violation
	for i := range report.Violations {
		if report.Violations[i].Kind == model.ViolationPreBondSell {
			preBond = &report.Violations[i]
		}
	}
	if preBond == nil {
		t.Fatalf("expected pre_bond_sell violation")
	}
	if preBond.Severity != model.SeverityCritical {
		t.Fatalf("pre_bond_sell severity should be CRITICAL, got %s", preBond.Severity)
	}
	// Only the two sells inside the bonding window count: 4 + 6.
	if want := "sold 10 before bonding period"; preBond.Detail != want {
		t.Fatalf("detail mismatch: %q != %q", preBond.Detail, want)
	}
}

func TestAnalyzeVictimLosses(t *testing.T) {
	cfg := testConfig()
	cfg.LossEpsilon = big.NewInt(1)
	analyzer := newTestAnalyzer(t, cfg)

	events := []model.TransferEvent{
		// buyerA spends 10, recovers 3: victim with loss 7.
		{From: deployer, To: buyerA, Value: big.NewInt(10), Block: 1, Timestamp: 2000},
		{From: buyerA, To: buyerB, Value: big.NewInt(3), Block: 2, Timestamp: 2100},
		// buyerB spends 3 and recovers nothing, but 3-0 > epsilon too.
	}

	report := analyzer.Analyze(token, deployer, 1000, events)

	if len(report.Victims) != 2 {
		t.Fatalf("expected 2 victims, got %+v", report.Victims)
	}
	// Victims are sorted by address.
	if report.Victims[0].Address != buyerA || report.Victims[0].Loss.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("victim A mismatch: %+v", report.Victims[0])
	}
	if report.Victims[1].Address != buyerB || report.Victims[1].Loss.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("victim B mismatch: %+v", report.Victims[1])
	}
	if report.TotalLosses.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("total losses mismatch: %s", report.TotalLosses)
	}
}

func TestAnalyzeRugScoreBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinVictimsForFlag = 1
	cfg.LossFlagThreshold = big.NewInt(0)
	analyzer := newTestAnalyzer(t, cfg)

	// Many quick dumps push the raw score past 100; it must clamp.
	var events []model.TransferEvent
	for i := 0; i < 10; i++ {
		events = append(events, model.TransferEvent{
			From: deployer, To: buyerA, Value: big.NewInt(100), Block: uint64(i), Timestamp: 1000 + uint64(i),
		})
	}
	events = append(events, model.TransferEvent{
		From: buyerA, To: buyerB, Value: big.NewInt(50), Block: 20, Timestamp: 1100,
	})

	report := analyzer.Analyze(token, deployer, 1000, events)
	if report.RugScore != 100 {
		t.Fatalf("expected clamped rug score 100, got %d", report.RugScore)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	analyzer := newTestAnalyzer(t, testConfig())

	events := []model.TransferEvent{
		{From: deployer, To: buyerA, Value: big.NewInt(10), Block: 1, Timestamp: 1050},
		{From: buyerA, To: buyerB, Value: big.NewInt(4), Block: 2, Timestamp: 1100},
		{From: buyerB, To: deployer, Value: big.NewInt(2), Block: 3, Timestamp: 1200},
	}

	first := analyzer.Analyze(token, deployer, 1000, events)
	second := analyzer.Analyze(token, deployer, 1000, events)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs differ:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeSortsUnorderedInput(t *testing.T) {
	analyzer := newTestAnalyzer(t, testConfig())

	ordered := []model.TransferEvent{
		{From: deployer, To: buyerA, Value: big.NewInt(5), Block: 1, Timestamp: 1100},
		{From: buyerA, To: buyerB, Value: big.NewInt(2), Block: 2, Timestamp: 1200},
	}
	shuffled := []model.TransferEvent{ordered[1], ordered[0]}

	a := analyzer.Analyze(token, deployer, 1000, ordered)
	b := analyzer.Analyze(token, deployer, 1000, shuffled)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("order of input should not matter:\n%+v\n%+v", a, b)
	}
}
