package similarity

import (
	"math/big"
	"sort"
	"strings"

	"walletScope/internal/graph"
)

// Feature weights. Jaccard and direct value dominate; same-block
// co-occurrence is the weakest signal.
const (
	weightJaccard     = 0.35
	weightDirectValue = 0.35
	weightDirectCount = 0.20
	weightCoBlocks    = 0.10
)

// DefaultExpansionThreshold is the minimum mean similarity to a seed set
// for a wallet to be suggested as part of the same cluster.
const DefaultExpansionThreshold = 0.4

// Pair is an unordered wallet pair in canonical order (A < B).
type Pair struct {
	A string
	B string
}

// NewPair normalizes an unordered pair.
func NewPair(a, b string) Pair {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Result holds pairwise and per-wallet entity-linkage scores.
type Result struct {
	Wallets      []string
	PairScores   map[Pair]float64
	WalletScores map[string]float64
}

// Score returns the symmetric similarity for two wallets, 0 if unscored.
func (r Result) Score(a, b string) float64 {
	return r.PairScores[NewPair(a, b)]
}

// Suggestion proposes adding a wallet to a curated seed cluster.
type Suggestion struct {
	Wallet string  `json:"wallet"`
	Mean   float64 `json:"mean_similarity"`
}

type pairFeatures struct {
	pair        Pair
	directValue *big.Int
	directCount int
	jaccard     float64
	coBlocks    int
}

// Score computes entity-linkage probabilities for every unordered pair of
// candidate wallets against the transfer graph. Wallets absent from the
// graph score 0 against everything; the result is always in [0,1].
func Score(g *graph.Graph, wallets []string) Result {
	candidates := dedupe(wallets)

	result := Result{
		Wallets:      candidates,
		PairScores:   make(map[Pair]float64),
		WalletScores: make(map[string]float64),
	}
	if len(candidates) < 2 {
		for _, w := range candidates {
			result.WalletScores[w] = 0
		}
		return result
	}

	neighbors := make(map[string]map[string]struct{}, len(candidates))
	for _, w := range candidates {
		neighbors[w] = g.Neighbors(w)
	}

	features := make([]pairFeatures, 0, len(candidates)*(len(candidates)-1)/2)
	maxValue := big.NewInt(0)
	maxCount := 0
	maxCoBlocks := 0

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]

			f := pairFeatures{
				pair:        NewPair(a, b),
				directValue: new(big.Int).Add(g.EdgeValue(a, b), g.EdgeValue(b, a)),
				directCount: g.EdgeCount(a, b) + g.EdgeCount(b, a),
				jaccard:     jaccard(neighbors[a], neighbors[b]),
				coBlocks:    intersectionSize(g.BlocksSeen(a), g.BlocksSeen(b)),
			}
			features = append(features, f)

			if f.directValue.Cmp(maxValue) > 0 {
				maxValue.Set(f.directValue)
			}
			if f.directCount > maxCount {
				maxCount = f.directCount
			}
			if f.coBlocks > maxCoBlocks {
				maxCoBlocks = f.coBlocks
			}
		}
	}

	for _, f := range features {
		score := weightJaccard*f.jaccard +
			weightDirectValue*normalizeBig(f.directValue, maxValue) +
			weightDirectCount*normalizeInt(f.directCount, maxCount) +
			weightCoBlocks*normalizeInt(f.coBlocks, maxCoBlocks)
		result.PairScores[f.pair] = clamp01(score)
	}

	for _, w := range candidates {
		sum := 0.0
		for _, other := range candidates {
			if other == w {
				continue
			}
			sum += result.Score(w, other)
		}
		result.WalletScores[w] = sum / float64(len(candidates)-1)
	}

	return result
}

// SuggestExpansion lists wallets outside the seed set whose mean similarity
// to the seeds meets the threshold, strongest first.
func SuggestExpansion(result Result, seed []string, threshold float64) []Suggestion {
	seedSet := make(map[string]struct{}, len(seed))
	for _, s := range seed {
		seedSet[strings.ToLower(s)] = struct{}{}
	}

	var suggestions []Suggestion
	for _, w := range result.Wallets {
		if _, ok := seedSet[w]; ok {
			continue
		}
		sum, n := 0.0, 0
		for s := range seedSet {
			if s == w {
				continue
			}
			sum += result.Score(w, s)
			n++
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		if mean >= threshold {
			suggestions = append(suggestions, Suggestion{Wallet: w, Mean: mean})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Mean != suggestions[j].Mean {
			return suggestions[i].Mean > suggestions[j].Mean
		}
		return suggestions[i].Wallet < suggestions[j].Wallet
	})
	return suggestions
}

func dedupe(wallets []string) []string {
	out := make([]string, 0, len(wallets))
	seen := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		w = strings.ToLower(w)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func intersectionSize(a, b map[uint64]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// normalizeBig divides by the feature maximum, defaulting the maximum to 1
// when no pair produced a nonzero value.
func normalizeBig(value, max *big.Int) float64 {
	if value == nil || value.Sign() == 0 || max == nil || max.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(value, max).Float64()
	return f
}

func normalizeInt(value, max int) float64 {
	if value == 0 || max == 0 {
		return 0
	}
	return float64(value) / float64(max)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
