package grn

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Exported aliases for internal helpers, used only by external _test
// package files that need white-box access without widening the public
// API.
var (
	SampleWithoutReplacementForTest = sampleWithoutReplacement
	DeriveRNGForTest                = deriveRNG
)

// NewSubnetMetaForTest builds a minimal subnetMeta sidecar for a
// SubnetResult, for round-trip tests that don't need a full driver run.
func NewSubnetMetaForTest(res *SubnetResult) subnetMeta {
	return subnetMeta{
		Index:             res.Index,
		Method:            MethodFDR.String(),
		FPREstimateSubnet: res.FPREstimate,
	}
}

// WriteSubnetTSVOnlyForTest writes only the TSV half of WriteSubnetFile's
// output, deliberately omitting the CBOR sidecar, so tests can exercise
// the missing-sidecar ConsistencyError path.
func WriteSubnetTSVOnlyForTest(outdir string, res *SubnetResult, names []string) error {
	subnetsDir := filepath.Join(outdir, "subnets")
	if err := os.MkdirAll(subnetsDir, 0o755); err != nil {
		return err
	}
	tsvPath := filepath.Join(subnetsDir, fmt.Sprintf("subnet_%d.tsv", res.Index))
	return writeAtomic(tsvPath, false, func(w *bufio.Writer) error {
		if _, err := w.WriteString(subnetHeader + "\n"); err != nil {
			return err
		}
		for _, e := range sortedEdges(res.Network) {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%.9g\n", names[e.Reg], names[e.Tar], e.MI); err != nil {
				return err
			}
		}
		return nil
	})
}

