package grn_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/grn"
)

func TestSampleWithoutReplacementDistinctAndInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	idx := grn.SampleWithoutReplacementForTest(100, 30, rng)
	require.Len(t, idx, 30)

	seen := make(map[int]bool)
	for _, i := range idx {
		require.False(t, seen[i])
		require.GreaterOrEqual(t, i, 0)
		require.Less(t, i, 100)
		seen[i] = true
	}
}

func TestDeriveRNGDeterministic(t *testing.T) {
	base1 := rand.New(rand.NewSource(99))
	base2 := rand.New(rand.NewSource(99))

	r1 := grn.DeriveRNGForTest(base1, 5)
	r2 := grn.DeriveRNGForTest(base2, 5)
	require.Equal(t, r1.Int63(), r2.Int63())
}

func TestDeriveRNGStreamsDiffer(t *testing.T) {
	base := rand.New(rand.NewSource(1))
	r1 := grn.DeriveRNGForTest(base, 1)
	r2 := grn.DeriveRNGForTest(base, 2)
	require.NotEqual(t, r1.Int63(), r2.Int63())
}
