package grn_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/grn"
)

// TestPruneMaxEntRemovesWeakestTriangleEdge checks a triangle
// A -> B -> T with mi(A,B)=0.9, mi(B,T)=0.7, mi(A,T)=0.4 loses the
// (A,T) edge and keeps (A,B) and (B,T).
func TestPruneMaxEntRemovesWeakestTriangleEdge(t *testing.T) {
	const A, B, T = 0, 1, 2

	network := grn.Network{
		A: {{Reg: A, Tar: T, MI: 0.4}, {Reg: A, Tar: B, MI: 0.9}},
		B: {{Reg: B, Tar: T, MI: 0.7}, {Reg: B, Tar: A, MI: 0.9}},
	}
	tftf := grn.TFTFNetwork{
		A: {B: 0.9},
		B: {A: 0.9},
	}

	pruned, err := grn.PruneMaxEnt(network, tftf, 2)
	require.NoError(t, err)

	require.NotContains(t, targetsOf(pruned[A]), T)
	require.Contains(t, targetsOf(pruned[B]), T)
	require.Contains(t, targetsOf(pruned[A]), B)
	require.Contains(t, targetsOf(pruned[B]), A)
}

// TestPruneMaxEntTieRemovesTFTFEdge covers the tie-break branch: when the
// TF-TF edge is the (tied) minimum, both directed regulator-regulator
// edges are removed and the target edges on both sides survive.
func TestPruneMaxEntTieRemovesTFTFEdge(t *testing.T) {
	const A, B, T = 0, 1, 2

	network := grn.Network{
		A: {{Reg: A, Tar: T, MI: 0.9}, {Reg: A, Tar: B, MI: 0.5}},
		B: {{Reg: B, Tar: T, MI: 0.9}, {Reg: B, Tar: A, MI: 0.5}},
	}
	tftf := grn.TFTFNetwork{
		A: {B: 0.5},
		B: {A: 0.5},
	}

	pruned, err := grn.PruneMaxEnt(network, tftf, 2)
	require.NoError(t, err)

	require.Contains(t, targetsOf(pruned[A]), T)
	require.Contains(t, targetsOf(pruned[B]), T)
	require.NotContains(t, targetsOf(pruned[A]), B)
	require.NotContains(t, targetsOf(pruned[B]), A)
}

func targetsOf(edges []grn.Edge) []int {
	var out []int
	for _, e := range edges {
		out = append(out, e.Tar)
	}
	return out
}
