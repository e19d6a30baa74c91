package grn

import (
	"fmt"
	"sort"
)

// Method is the significance-pruning criterion, expressed as a tagged
// variant with an exhaustive switch rather than a string comparison.
type Method int

const (
	// MethodFDR is the pooled-global Benjamini-Hochberg-equivalent criterion (default)
	MethodFDR Method = iota
	// MethodFWER is the Bonferroni criterion
	MethodFWER
	// MethodFPR is the per-edge criterion
	MethodFPR
)

func (m Method) String() string {
	switch m {
	case MethodFDR:
		return "FDR"
	case MethodFWER:
		return "FWER"
	case MethodFPR:
		return "FPR"
	default:
		return "unknown"
	}
}

// ParseMethod maps a CLI flag name to a Method, rejecting anything else.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "FDR":
		return MethodFDR, nil
	case "FWER":
		return MethodFWER, nil
	case "FPR":
		return MethodFPR, nil
	default:
		return 0, &ParamError{Msg: fmt.Sprintf("unknown pruning method %q", s)}
	}
}

// Edge is a single (regulator, target, MI) triple, addressed by gene id.
type Edge struct {
	Reg int
	Tar int
	MI  float64
}

// Network maps a regulator id to the edges it retains.
type Network map[int][]Edge

// TFTFNetwork maps a regulator id to the regulator-regulator MI values it
// retains, restricted to the edges kept by PruneAlpha and consumed by
// PruneMaxEnt.
type TFTFNetwork map[int]map[int]float64

// AlphaPruneResult carries the pruned network, the TF-TF sub-network, and
// the fpr_est_subnet scalar reported to the consolidator.
type AlphaPruneResult struct {
	Network      Network
	TFTF         TFTFNetwork
	FPREstimate  float64
	NBeforeAlpha int
	NAfterAlpha  int
}

// PruneAlpha applies the FDR/FWER/FPR significance criterion to network,
// keeping only edges surviving the chosen method at level alpha. numGenes
// is G, numRegulators is |R|; both are needed by the FWER and FDR
// post-condition formulas.
func PruneAlpha(network Network, null *NullModel, alpha float64, method Method, numRegulators, numGenes int) (*AlphaPruneResult, error) {
	nBefore := 0
	for _, edges := range network {
		nBefore += len(edges)
	}

	var keep func(reg int, e Edge, rank int, m int) bool
	var pooledRanks map[Edge]int
	m := numRegulators * (numGenes - 1)

	switch method {
	case MethodFPR:
		keep = func(reg int, e Edge, rank int, m int) bool { return null.PValue(e.MI) <= alpha }
	case MethodFWER:
		bonferroni := float64(numRegulators) * float64(numGenes-1)
		keep = func(reg int, e Edge, rank int, m int) bool { return null.PValue(e.MI)*bonferroni <= alpha }
	case MethodFDR:
		pooledRanks = rankEdgesByPValueAscending(network, null)
		keep = func(reg int, e Edge, rank int, mCount int) bool {
			return null.PValue(e.MI) <= alpha*float64(rank)/float64(mCount)
		}
	default:
		return nil, &ParamError{Msg: fmt.Sprintf("unknown pruning method %v", method)}
	}

	pruned := make(Network, len(network))
	regIDs := sortedKeys(network)
	nAfter := 0
	for _, reg := range regIDs {
		for _, e := range network[reg] {
			var rank int
			if method == MethodFDR {
				rank = pooledRanks[e]
			}
			if keep(reg, e, rank, m) {
				pruned[reg] = append(pruned[reg], e)
				nAfter++
			}
		}
	}

	tftf := buildTFTF(pruned)

	fprEst := fprEstimateSubnet(method, alpha, numRegulators, numGenes, nBefore, nAfter, nAfter)
	return &AlphaPruneResult{
		Network:      pruned,
		TFTF:         tftf,
		FPREstimate:  fprEst,
		NBeforeAlpha: nBefore,
		NAfterAlpha:  nAfter,
	}, nil
}

// rankEdgesByPValueAscending assigns each edge its 1-based rank among all
// candidate edges in network, ordered ascending by null p-value, for the
// pooled-global FDR criterion.
func rankEdgesByPValueAscending(network Network, null *NullModel) map[Edge]int {
	var all []Edge
	for _, edges := range network {
		all = append(all, edges...)
	}
	sort.Slice(all, func(i, j int) bool { return null.PValue(all[i].MI) < null.PValue(all[j].MI) })
	ranks := make(map[Edge]int, len(all))
	for i, e := range all {
		ranks[e] = i + 1
	}
	return ranks
}

// buildTFTF restricts network to regulator-regulator edges, keyed both
// ways, for use by PruneMaxEnt's triangle lookups.
func buildTFTF(network Network) TFTFNetwork {
	regSet := make(map[int]bool, len(network))
	for r := range network {
		regSet[r] = true
	}
	tftf := make(TFTFNetwork)
	for r, edges := range network {
		for _, e := range edges {
			if regSet[e.Tar] {
				if tftf[r] == nil {
					tftf[r] = make(map[int]float64)
				}
				tftf[r][e.Tar] = e.MI
			}
		}
	}
	return tftf
}

// fprEstimateSubnet computes the fpr_est_subnet scalar reported alongside
// a subnet's pruned edges, per the method-specific post-condition
// formulas. nAfterMaxEnt should equal nAfterAlpha when MaxEnt pruning is
// disabled for this subnet; runSubnet recomputes fprEst with the true
// post-MaxEnt count once pruning has run.
func fprEstimateSubnet(method Method, alpha float64, numRegulators, numGenes, nBeforeAlpha, nAfterAlpha, nAfterMaxEnt int) float64 {
	if nAfterAlpha == 0 {
		return alpha
	}
	switch method {
	case MethodFPR:
		return alpha * float64(nAfterMaxEnt) / float64(nAfterAlpha)
	case MethodFDR:
		denom := float64(numRegulators)*float64(numGenes) - (1-alpha)*float64(nAfterAlpha)
		if denom <= 0 {
			return alpha
		}
		return alpha * float64(nAfterMaxEnt) / denom
	case MethodFWER:
		bonferroni := float64(numRegulators) * float64(numGenes-1)
		return alpha / bonferroni * float64(nAfterMaxEnt) / float64(nAfterAlpha)
	default:
		return alpha
	}
}

func sortedKeys(network Network) []int {
	keys := make([]int, 0, len(network))
	for k := range network {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
