package grn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/grn"
)

func identityMatrix(n, g int) *grn.ExpressionMatrix {
	names := make([]string, g)
	index := make(map[string]int, g)
	copula := make([][]float64, g)
	rank := make([][]int, g)
	for i := 0; i < g; i++ {
		names[i] = string(rune('A' + i))
		index[names[i]] = i
		copula[i] = make([]float64, n)
		rank[i] = make([]int, n)
		for s := 0; s < n; s++ {
			copula[i][s] = float64(s+1) / float64(n+1)
			rank[i][s] = s + 1
		}
	}
	return &grn.ExpressionMatrix{GeneNames: names, GeneIndex: index, N: n, Copula: copula, Rank: rank}
}

// TestConsolidateCountsAndRowCount checks that the consolidated output
// contains exactly one row per distinct (reg, tar) appearing in the union
// of subnet edge sets, with count equal to subnet occurrence.
func TestConsolidateCountsAndRowCount(t *testing.T) {
	full := identityMatrix(50, 4)

	results := []*grn.SubnetResult{
		{Index: 0, Network: grn.Network{0: {{Reg: 0, Tar: 1, MI: 1.0}}}, FPREstimate: 0.01},
		{Index: 1, Network: grn.Network{0: {{Reg: 0, Tar: 1, MI: 1.1}}, 2: {{Reg: 2, Tar: 3, MI: 0.5}}}, FPREstimate: 0.02},
	}

	edges, err := grn.Consolidate(results, full, 1)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	byPair := make(map[[2]int]grn.ConsolidatedEdge)
	for _, e := range edges {
		byPair[[2]int{e.Reg, e.Tar}] = e
	}
	require.Equal(t, 2, byPair[[2]int{0, 1}].Count)
	require.Equal(t, 1, byPair[[2]int{2, 3}].Count)
}

func TestConsolidateKEqualsOneIsNaN(t *testing.T) {
	full := identityMatrix(50, 2)
	results := []*grn.SubnetResult{
		{Index: 0, Network: grn.Network{0: {{Reg: 0, Tar: 1, MI: 1.0}}}, FPREstimate: 0.02},
	}
	edges, err := grn.Consolidate(results, full, 1)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.True(t, math.IsNaN(edges[0].P))
}

func TestConsolidateSCCOfIdenticalRanksIsOne(t *testing.T) {
	full := identityMatrix(50, 2)
	results := []*grn.SubnetResult{
		{Index: 0, Network: grn.Network{0: {{Reg: 0, Tar: 1, MI: 1.0}}}, FPREstimate: 0.02},
	}
	edges, err := grn.Consolidate(results, full, 1)
	require.NoError(t, err)
	require.InDelta(t, 1.0, edges[0].SCC, 1e-9)
}
