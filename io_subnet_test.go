package grn_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/grn"
)

// TestSubnetFileRoundTrip checks spec's round-trip property: writing a
// subnet to disk and reloading it yields the identical edge set.
func TestSubnetFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	names := []string{"GeneA", "GeneB", "GeneC"}
	geneIndex := map[string]int{"GeneA": 0, "GeneB": 1, "GeneC": 2}

	res := &grn.SubnetResult{
		Index: 3,
		Network: grn.Network{
			0: {{Reg: 0, Tar: 1, MI: 1.23456789}, {Reg: 0, Tar: 2, MI: 0.00001234}},
		},
		FPREstimate: 0.042,
	}

	err := grn.WriteSubnetFile(dir, res, names, grn.NewSubnetMetaForTest(res), false)
	require.NoError(t, err)

	loaded, meta, err := grn.ReadSubnetFile(dir, 3, geneIndex)
	require.NoError(t, err)
	require.InDelta(t, 0.042, meta.FPREstimateSubnet, 1e-9)

	require.Len(t, loaded.Network[0], 2)
	require.InDelta(t, 1.23456789, loaded.Network[0][0].MI, 1e-8)
	require.InDelta(t, 0.00001234, loaded.Network[0][1].MI, 1e-12)
}

func TestSubnetFileRoundTripCompressed(t *testing.T) {
	dir := t.TempDir()
	names := []string{"GeneA", "GeneB"}
	geneIndex := map[string]int{"GeneA": 0, "GeneB": 1}

	res := &grn.SubnetResult{
		Index:       7,
		Network:     grn.Network{0: {{Reg: 0, Tar: 1, MI: 2.5}}},
		FPREstimate: 0.01,
	}

	err := grn.WriteSubnetFile(dir, res, names, grn.NewSubnetMetaForTest(res), true)
	require.NoError(t, err)

	loaded, meta, err := grn.ReadSubnetFile(dir, 7, geneIndex)
	require.NoError(t, err)
	require.InDelta(t, 0.01, meta.FPREstimateSubnet, 1e-9)
	require.Len(t, loaded.Network[0], 1)
	require.InDelta(t, 2.5, loaded.Network[0][0].MI, 1e-8)
}

func TestReadSubnetFileMissingSidecarIsConsistencyError(t *testing.T) {
	dir := t.TempDir()
	names := []string{"GeneA", "GeneB"}
	geneIndex := map[string]int{"GeneA": 0, "GeneB": 1}

	res := &grn.SubnetResult{
		Index:   1,
		Network: grn.Network{0: {{Reg: 0, Tar: 1, MI: 0.5}}},
	}
	require.NoError(t, grn.WriteSubnetTSVOnlyForTest(dir, res, names))

	_, _, err := grn.ReadSubnetFile(dir, 1, geneIndex)
	require.Error(t, err)
	var consistencyErr *grn.ConsistencyError
	require.ErrorAs(t, err, &consistencyErr)
}
