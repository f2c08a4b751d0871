package pipeline

import (
	"context"
	"math/big"
	"testing"

	"walletScope/internal/model"
)

const (
	hub       = "0x9999999999999999999999999999999999999999"
	secondary = "0x4444444444444444444444444444444444444444"
	stranger  = "0x5555555555555555555555555555555555555555"
)

func clusterFixture() *fakeChainData {
	data := newFakeChainData()
	data.creations[tokenOne] = model.ContractCreation{Deployer: deployer, Block: 1, Timestamp: 1000}

	// Deployer and its funded wallet both orbit the hub; a stranger does not.
	data.transfers[tokenOne] = []model.TransferEvent{
		{From: deployer, To: hub, Value: big.NewInt(100), Block: 2, Timestamp: 1010},
		{From: secondary, To: hub, Value: big.NewInt(100), Block: 2, Timestamp: 1020},
		{From: stranger, To: buyerTwo, Value: big.NewInt(100), Block: 9, Timestamp: 1030},
	}

	// The deployer funded the secondary wallet, which has a thin history.
	data.normalTxs[deployer] = []model.TransactionRecord{
		{Hash: "0xfund", From: deployer, To: secondary, Value: big.NewInt(1000), Block: 1, Timestamp: 1001},
	}
	data.normalTxs[secondary] = []model.TransactionRecord{
		{Hash: "0xonly", From: secondary, To: hub, Value: big.NewInt(1), Block: 2, Timestamp: 1020},
	}
	return data
}

func newTestClusterRunner(t *testing.T, data ChainData) *ClusterRunner {
	t.Helper()
	runner, err := NewClusterRunner(ClusterConfig{}, data, nil)
	if err != nil {
		t.Fatalf("cluster runner: %v", err)
	}
	return runner
}

func TestClusterRunSuggestsLinkedWallet(t *testing.T) {
	runner := newTestClusterRunner(t, clusterFixture())

	report, err := runner.Run(context.Background(), tokenOne, []string{deployer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Token != tokenOne {
		t.Fatalf("token mismatch: %s", report.Token)
	}

	var suggested []string
	for _, s := range report.Suggestions {
		suggested = append(suggested, s.Wallet)
	}
	found := false
	for _, w := range suggested {
		if w == secondary {
			found = true
		}
		if w == stranger {
			t.Fatalf("unrelated wallet must not be suggested: %v", suggested)
		}
	}
	if !found {
		t.Fatalf("funded look-alike wallet should be suggested, got %v", suggested)
	}
}

func TestClusterRunPairScoresSortedDescending(t *testing.T) {
	runner := newTestClusterRunner(t, clusterFixture())

	report, err := runner.Run(context.Background(), tokenOne, []string{deployer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(report.PairScores); i++ {
		if report.PairScores[i].Score > report.PairScores[i-1].Score {
			t.Fatalf("pair scores must sort descending: %+v", report.PairScores)
		}
	}
}

func TestCandidatesIncludeDeployerEarlyBuyersAndFundedWallets(t *testing.T) {
	data := clusterFixture()
	runner := newTestClusterRunner(t, data)

	events := data.transfers[tokenOne]
	candidates, err := runner.Candidates(context.Background(), tokenOne, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{deployer: false, hub: false, secondary: false}
	for _, c := range candidates {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for wallet, seen := range want {
		if !seen {
			t.Fatalf("candidate %s missing from %v", wallet, candidates)
		}
	}
}

func TestSecondaryWalletsRespectActivityThreshold(t *testing.T) {
	data := clusterFixture()
	// Give the funded wallet a deep history so it no longer looks fresh.
	busy := make([]model.TransactionRecord, 0, 150)
	for i := 0; i < 150; i++ {
		busy = append(busy, model.TransactionRecord{
			Hash: "0xbusy", From: secondary, To: hub,
			Value: big.NewInt(1), Block: uint64(i), Timestamp: uint64(2000 + i),
		})
	}
	data.normalTxs[secondary] = busy

	runner := newTestClusterRunner(t, data)
	candidates, err := runner.Candidates(context.Background(), tokenOne, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range candidates {
		if c == secondary {
			t.Fatalf("active wallets must not qualify as throwaways: %v", candidates)
		}
	}
}

func TestClusterRunRejectsBadToken(t *testing.T) {
	runner := newTestClusterRunner(t, newFakeChainData())
	if _, err := runner.Run(context.Background(), "not-a-token", nil); err == nil {
		t.Fatalf("expected error for malformed token address")
	}
}
