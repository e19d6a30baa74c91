package grn_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/grn"
)

func TestBuildNullModelRejectsTooFewSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := grn.BuildNullModel(1, 100, rng)
	require.Error(t, err)
}

func TestNullModelPValueMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, err := grn.BuildNullModel(30, 2000, rng)
	require.NoError(t, err)

	pLow := m.PValue(0.0)
	pHigh := m.PValue(5.0)
	require.GreaterOrEqual(t, pLow, pHigh)
	require.InDelta(t, 1.0, pLow, 1e-9)
}

func TestNullModelMiThresholdRoundTrips(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m, err := grn.BuildNullModel(40, 5000, rng)
	require.NoError(t, err)

	thresh := m.MiThreshold(0.05)
	require.LessOrEqual(t, m.PValue(thresh), 0.0501)
}
