package graph

import (
	"math/big"
	"testing"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
	walletC = "0x3333333333333333333333333333333333333333"
)

func TestBuildAccumulatesEdges(t *testing.T) {
	g := Build([]model.TransferEvent{
		{From: walletA, To: walletB, Value: big.NewInt(10), Block: 1},
		{From: walletA, To: walletB, Value: big.NewInt(5), Block: 2},
		{From: walletB, To: walletA, Value: big.NewInt(3), Block: 2},
	})

	if got := g.EdgeValue(walletA, walletB); got.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("edge value mismatch: %s", got)
	}
	if got := g.EdgeCount(walletA, walletB); got != 2 {
		t.Fatalf("edge count mismatch: %d", got)
	}
	if got := len(g.EdgeBlocks(walletA, walletB)); got != 2 {
		t.Fatalf("edge blocks mismatch: %d", got)
	}
	if got := g.EdgeValue(walletB, walletA); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("reverse edge value mismatch: %s", got)
	}
}

func TestAddSkipsSelfAndBurnAndZeroValue(t *testing.T) {
	g := Build([]model.TransferEvent{
		{From: walletA, To: walletA, Value: big.NewInt(10), Block: 1},
		{From: normalize.ZeroAddress, To: walletB, Value: big.NewInt(10), Block: 1},
		{From: walletB, To: normalize.ZeroAddress, Value: big.NewInt(10), Block: 1},
		{From: walletA, To: walletB, Value: big.NewInt(0), Block: 1},
	})

	if len(g.Nodes()) != 0 {
		t.Fatalf("expected empty graph, got nodes %v", g.Nodes())
	}
}

func TestNeighborsUnionAndBlocksSeen(t *testing.T) {
	g := Build([]model.TransferEvent{
		{From: walletA, To: walletB, Value: big.NewInt(1), Block: 5},
		{From: walletC, To: walletA, Value: big.NewInt(1), Block: 7},
	})

	neighbors := g.Neighbors(walletA)
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %v", neighbors)
	}
	if _, ok := neighbors[walletB]; !ok {
		t.Fatalf("successor missing from neighbors")
	}
	if _, ok := neighbors[walletC]; !ok {
		t.Fatalf("predecessor missing from neighbors")
	}

	blocks := g.BlocksSeen(walletA)
	if len(blocks) != 2 {
		t.Fatalf("expected blocks 5 and 7, got %v", blocks)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	lower := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	g := Build([]model.TransferEvent{
		{From: lower, To: walletB, Value: big.NewInt(4), Block: 1},
	})

	upper := "0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD"
	if got := g.EdgeValue(upper, walletB); got.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("edge lookup should canonicalize, got %s", got)
	}
	if !g.HasNode(walletB) {
		t.Fatalf("walletB should be a node")
	}
}

func TestAbsentWalletIsEmptyNotError(t *testing.T) {
	g := New()

	if g.HasNode(walletA) {
		t.Fatalf("empty graph has no nodes")
	}
	if len(g.Neighbors(walletA)) != 0 {
		t.Fatalf("absent wallet should have no neighbors")
	}
	if g.EdgeValue(walletA, walletB).Sign() != 0 {
		t.Fatalf("absent edge value should be zero")
	}
	if g.EdgeCount(walletA, walletB) != 0 {
		t.Fatalf("absent edge count should be zero")
	}
}
