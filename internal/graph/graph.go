package graph

import (
	"math/big"
	"sort"
	"strings"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

// Edge accumulates all transfers for one ordered (from, to) pair.
type Edge struct {
	Value  *big.Int
	Count  int
	Blocks map[uint64]struct{}
}

// Graph is an aggregated directed transfer graph. Nodes are canonical
// wallet addresses; self-transfers and burn endpoints are excluded.
type Graph struct {
	edges      map[string]map[string]*Edge
	out        map[string]map[string]struct{}
	in         map[string]map[string]struct{}
	blocksSeen map[string]map[uint64]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		edges:      make(map[string]map[string]*Edge),
		out:        make(map[string]map[string]struct{}),
		in:         make(map[string]map[string]struct{}),
		blocksSeen: make(map[string]map[uint64]struct{}),
	}
}

// Build aggregates a window of transfer events into a fresh graph.
func Build(events []model.TransferEvent) *Graph {
	g := New()
	for _, ev := range events {
		g.Add(ev)
	}
	return g
}

// Add folds one transfer into the graph. Zero-value transfers, self
// transfers, and burn-address endpoints are ignored.
func (g *Graph) Add(ev model.TransferEvent) {
	if ev.Value == nil || ev.Value.Sign() <= 0 {
		return
	}
	from := strings.ToLower(ev.From)
	to := strings.ToLower(ev.To)
	if from == to {
		return
	}
	if normalize.IsZero(from) || normalize.IsZero(to) {
		return
	}

	edge := g.edge(from, to)
	edge.Value.Add(edge.Value, ev.Value)
	edge.Count++
	edge.Blocks[ev.Block] = struct{}{}

	g.addNeighbor(g.out, from, to)
	g.addNeighbor(g.in, to, from)
	g.seenBlock(from, ev.Block)
	g.seenBlock(to, ev.Block)
}

func (g *Graph) edge(from, to string) *Edge {
	row := g.edges[from]
	if row == nil {
		row = make(map[string]*Edge)
		g.edges[from] = row
	}
	edge := row[to]
	if edge == nil {
		edge = &Edge{Value: big.NewInt(0), Blocks: make(map[uint64]struct{})}
		row[to] = edge
	}
	return edge
}

func (g *Graph) addNeighbor(index map[string]map[string]struct{}, key, neighbor string) {
	set := index[key]
	if set == nil {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[neighbor] = struct{}{}
}

func (g *Graph) seenBlock(wallet string, block uint64) {
	set := g.blocksSeen[wallet]
	if set == nil {
		set = make(map[uint64]struct{})
		g.blocksSeen[wallet] = set
	}
	set[block] = struct{}{}
}

// EdgeValue returns the accumulated value for the ordered pair, or zero.
func (g *Graph) EdgeValue(from, to string) *big.Int {
	if edge := g.lookup(from, to); edge != nil {
		return new(big.Int).Set(edge.Value)
	}
	return big.NewInt(0)
}

// EdgeCount returns the transfer count for the ordered pair, or zero.
func (g *Graph) EdgeCount(from, to string) int {
	if edge := g.lookup(from, to); edge != nil {
		return edge.Count
	}
	return 0
}

// EdgeBlocks returns the block set for the ordered pair, or nil.
func (g *Graph) EdgeBlocks(from, to string) map[uint64]struct{} {
	if edge := g.lookup(from, to); edge != nil {
		return edge.Blocks
	}
	return nil
}

func (g *Graph) lookup(from, to string) *Edge {
	row := g.edges[strings.ToLower(from)]
	if row == nil {
		return nil
	}
	return row[strings.ToLower(to)]
}

// HasNode reports whether the wallet appears in the graph.
func (g *Graph) HasNode(wallet string) bool {
	wallet = strings.ToLower(wallet)
	_, outOK := g.out[wallet]
	_, inOK := g.in[wallet]
	return outOK || inOK
}

// Neighbors returns the union of successors and predecessors of a wallet.
// A wallet absent from the graph yields an empty set.
func (g *Graph) Neighbors(wallet string) map[string]struct{} {
	wallet = strings.ToLower(wallet)
	neighbors := make(map[string]struct{})
	for n := range g.out[wallet] {
		neighbors[n] = struct{}{}
	}
	for n := range g.in[wallet] {
		neighbors[n] = struct{}{}
	}
	return neighbors
}

// BlocksSeen returns every block in which the wallet moved tokens.
func (g *Graph) BlocksSeen(wallet string) map[uint64]struct{} {
	return g.blocksSeen[strings.ToLower(wallet)]
}

// Nodes returns all wallets in the graph, sorted for stable iteration.
func (g *Graph) Nodes() []string {
	seen := make(map[string]struct{})
	for w := range g.out {
		seen[w] = struct{}{}
	}
	for w := range g.in {
		seen[w] = struct{}{}
	}
	nodes := make([]string, 0, len(seen))
	for w := range seen {
		nodes = append(nodes, w)
	}
	sort.Strings(nodes)
	return nodes
}
