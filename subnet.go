package grn

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// SubnetResult is the pruned edge set and reported FPR estimate produced
// by running the full per-subnet pipeline (subsample, APMI, PruneAlpha,
// PruneMaxEnt) once.
type SubnetResult struct {
	Index       int
	Network     Network
	FPREstimate float64
}

// runSubnet executes steps 1-5 of the subnet pipeline for one subnet: draw
// a sample index set, rebuild a subsampled+re-copula-transformed matrix,
// compute per-regulator MI against every other gene, and apply
// significance/MaxEnt pruning.
func runSubnet(idx int, full *ExpressionMatrix, regs []int, cfg *Config, null *NullModel, rng *rand.Rand) (*SubnetResult, error) {
	nSub := int(ceilFloat(cfg.Subsample * float64(full.N)))
	if nSub <= 0 || nSub > full.N {
		nSub = full.N
	}
	sampleIdx := sampleWithoutReplacement(full.N, nSub, rng)

	sub := sampleAndRecopula(full, sampleIdx, rng)

	network, err := computeRegulatorMI(sub, regs, cfg.Threads, cfg.MIThreshold)
	if err != nil {
		return nil, err
	}

	// Under --noAlpha every p-value passes the per-edge FPR test at
	// NoAlphaSentinel, while the rank- and Bonferroni-scaled FDR and FWER
	// tests would still drop edges, so FPR is used for the pruning itself.
	pruneMethod := cfg.Method
	if cfg.NoAlpha {
		pruneMethod = MethodFPR
	}
	alphaResult, err := PruneAlpha(network, null, cfg.Alpha, pruneMethod, len(regs), sub.NumGenes())
	if err != nil {
		return nil, err
	}

	pruned := alphaResult.Network
	nAfterMaxEnt := alphaResult.NAfterAlpha
	if !cfg.NoMaxEnt {
		pruned, err = PruneMaxEnt(alphaResult.Network, alphaResult.TFTF, cfg.Threads)
		if err != nil {
			return nil, err
		}
		nAfterMaxEnt = countEdges(pruned)
	}

	fprEst := fprEstimateSubnet(cfg.Method, cfg.Alpha, len(regs), sub.NumGenes(), alphaResult.NBeforeAlpha, alphaResult.NAfterAlpha, nAfterMaxEnt)

	return &SubnetResult{Index: idx, Network: pruned, FPREstimate: fprEst}, nil
}

// sampleAndRecopula builds a subsampled expression matrix restricted to
// the samples in sampleIdx, then re-copula-transforms each gene's row
// within the smaller sample size, per spec's subnet pipeline step 2.
func sampleAndRecopula(full *ExpressionMatrix, sampleIdx []int, rng *rand.Rand) *ExpressionMatrix {
	n := len(sampleIdx)
	sub := &ExpressionMatrix{
		GeneNames: full.GeneNames,
		GeneIndex: full.GeneIndex,
		N:         n,
		Copula:    make([][]float64, full.NumGenes()),
		Rank:      make([][]int, full.NumGenes()),
	}
	raw := make([]float64, n)
	for g := 0; g < full.NumGenes(); g++ {
		for i, s := range sampleIdx {
			raw[i] = full.Copula[g][s]
		}
		sub.Copula[g], sub.Rank[g] = copulaAndRank(raw, rng)
	}
	return sub
}

// computeRegulatorMI runs the per-regulator MI computation inside a
// subnet: the loop over regulators is embarrassingly parallel, each
// goroutine reading the shared immutable sub matrix and writing to its
// own network[r] slot, joined only at Wait().
func computeRegulatorMI(sub *ExpressionMatrix, regs []int, nthreads int, miCutoff float64) (Network, error) {
	// Each goroutine owns exactly one slot by its position in regs, never
	// touching any other slot, so this slice needs no locking; the map is
	// only assembled afterward, serially, in the order of regs.
	slots := make([][]Edge, len(regs))

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(nthreads)

	for pos, r := range regs {
		pos, r := pos, r
		g.Go(func() error {
			est := NewEstimator(sub.N)
			var edges []Edge
			for t := 0; t < sub.NumGenes(); t++ {
				if t == r {
					continue
				}
				mi := est.Apmi(sub.Copula[r], sub.Copula[t])
				if mi < miCutoff {
					continue
				}
				edges = append(edges, Edge{Reg: r, Tar: t, MI: mi})
			}
			slots[pos] = edges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	network := make(Network, len(regs))
	for pos, r := range regs {
		network[r] = slots[pos]
	}
	return network, nil
}

func ceilFloat(f float64) float64 {
	i := int64(f)
	if float64(i) < f {
		i++
	}
	return float64(i)
}

// RunSubnets drives the full subnet fan-out: either exactly
// cfg.NumSubnets subnets, or, in adaptive mode, subnets spawned until
// every regulator has accumulated at least cfg.TargetsPerRegulator
// distinct targets across the union of all subnet edge sets.
//
// Per-subnet RNGs are derived serially from baseRNG before any worker
// starts, so the shared RNG state is never touched concurrently; each
// subnet then draws its sample index set from its own RNG, and subnets
// run in parallel with SetLimit(nthreads).
func RunSubnets(full *ExpressionMatrix, regs []int, cfg *Config, null *NullModel, baseRNG *rand.Rand) ([]*SubnetResult, error) {
	if !cfg.Adaptive {
		return runSubnetBatch(full, regs, cfg, null, baseRNG, 0, cfg.NumSubnets)
	}
	return runAdaptiveSubnets(full, regs, cfg, null, baseRNG)
}

func runSubnetBatch(full *ExpressionMatrix, regs []int, cfg *Config, null *NullModel, baseRNG *rand.Rand, startIdx, count int) ([]*SubnetResult, error) {
	rngs := make([]*rand.Rand, count)
	for i := 0; i < count; i++ {
		rngs[i] = deriveRNG(baseRNG, uint64(startIdx+i))
	}

	results := make([]*SubnetResult, count)
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.Threads)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			res, err := runSubnet(startIdx+i, full, regs, cfg, null, rngs[i])
			if err != nil {
				return fmt.Errorf("subnet %d: %w", startIdx+i, err)
			}
			results[i] = res
			log.Noticef("subnet %d: %s edges after pruning", res.Index, Percentage(countEdges(res.Network), len(regs)*(full.NumGenes()-1)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runAdaptiveSubnets spawns batches of subnets sequentially (each batch
// itself parallel) until every regulator has reached
// cfg.TargetsPerRegulator distinct targets across the accumulated union.
func runAdaptiveSubnets(full *ExpressionMatrix, regs []int, cfg *Config, null *NullModel, baseRNG *rand.Rand) ([]*SubnetResult, error) {
	var all []*SubnetResult
	targetsSeen := make(map[int]map[int]bool, len(regs))
	for _, r := range regs {
		targetsSeen[r] = make(map[int]bool)
	}

	batchSize := max(1, cfg.Threads)
	for {
		batch, err := runSubnetBatch(full, regs, cfg, null, baseRNG, len(all), batchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		for _, res := range batch {
			for r, edges := range res.Network {
				for _, e := range edges {
					targetsSeen[r][e.Tar] = true
				}
			}
		}
		if minTargetsReached(targetsSeen, regs, cfg.TargetsPerRegulator) {
			break
		}
		if len(all) > 10000 {
			return nil, &ConsistencyError{Subnet: len(all), Field: "adaptive convergence (10000 subnet cap exceeded)"}
		}
	}
	return all, nil
}

func minTargetsReached(seen map[int]map[int]bool, regs []int, target int) bool {
	for _, r := range regs {
		if len(seen[r]) < target {
			return false
		}
	}
	return true
}
