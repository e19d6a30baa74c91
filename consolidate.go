package grn

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConsolidatedEdge is one row of the final output: an edge seen in at
// least one subnet, with its full-matrix MI, Spearman correlation, subnet
// occurrence count, and binomial p-value.
type ConsolidatedEdge struct {
	Reg   int
	Tar   int
	MI    float64
	SCC   float64
	Count int
	P     float64
}

// Consolidate aggregates K subnet results into the final edge table: for
// every (reg, tar) pair appearing in at least one subnet, recompute MI on
// the full (non-subsampled) matrix, compute the Spearman correlation from
// the full-matrix rank vectors, count subnet occurrences, and derive the
// binomial p-value against theta = mean(fpr_est_subnet) across subnets.
// The per-pair recomputation is parallelized across nthreads, each
// goroutine owning its own Estimator and writing only to its own slot in
// edges, joined only after Wait() returns, mirroring computeRegulatorMI's
// private-slot pattern.
func Consolidate(results []*SubnetResult, full *ExpressionMatrix, nthreads int) ([]ConsolidatedEdge, error) {
	type key struct{ reg, tar int }
	counts := make(map[key]int)
	for _, res := range results {
		for r, edges := range res.Network {
			for _, e := range edges {
				counts[key{r, e.Tar}]++
			}
		}
	}

	fprEsts := make([]float64, len(results))
	for i, res := range results {
		fprEsts[i] = res.FPREstimate
	}
	theta := stat.Mean(fprEsts, nil)
	k := len(results)

	pairs := make([]key, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].reg != pairs[j].reg {
			return pairs[i].reg < pairs[j].reg
		}
		return pairs[i].tar < pairs[j].tar
	})

	edges := make([]ConsolidatedEdge, len(pairs))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(nthreads)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			est := NewEstimator(full.N)
			count := counts[p]
			edges[i] = ConsolidatedEdge{
				Reg:   p.reg,
				Tar:   p.tar,
				MI:    est.Apmi(full.Copula[p.reg], full.Copula[p.tar]),
				SCC:   spearman(full.Rank[p.reg], full.Rank[p.tar]),
				Count: count,
				P:     rightTailBinomialP(k, count, theta),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

// spearman computes the Spearman rank correlation
// 1 - 6*sum(d^2) / (N*(N^2-1)) from two equal-length rank vectors, with
// 64-bit accumulation of the squared-difference sum.
func spearman(rx, ry []int) float64 {
	n := len(rx)
	var sumSq float64
	for i := 0; i < n; i++ {
		d := float64(rx[i] - ry[i])
		sumSq += d * d
	}
	nf := float64(n)
	return 1 - 6*sumSq/(nf*(nf*nf-1))
}

// rightTailBinomialP returns P[X >= count] for X ~ Binomial(k, theta),
// computed in log space via log-sum-exp over i = count..k terms of
// distuv.Binomial's own LogProb, for numerical robustness when k or
// count is large. k == 1 is undefined (NaN), per spec.
func rightTailBinomialP(k, count int, theta float64) float64 {
	if k <= 1 {
		return math.NaN()
	}
	if count > k {
		return 0
	}
	dist := distuv.Binomial{N: float64(k), P: theta}
	logTerms := make([]float64, 0, k-count+1)
	for i := count; i <= k; i++ {
		logTerms = append(logTerms, dist.LogProb(float64(i)))
	}
	return math.Exp(logSumExp(logTerms))
}

// logSumExp computes log(sum(exp(terms))) without overflow by factoring
// out the maximum term via floats.Max, then accumulating the rescaled
// sum via floats.Sum.
func logSumExp(terms []float64) float64 {
	if len(terms) == 0 {
		return math.Inf(-1)
	}
	m := floats.Max(terms)
	if math.IsInf(m, -1) {
		return m
	}
	rescaled := make([]float64, len(terms))
	for i, t := range terms {
		rescaled[i] = math.Exp(t - m)
	}
	return m + math.Log(floats.Sum(rescaled))
}
