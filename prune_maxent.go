package grn

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// removal names one edge (owner, tar) to drop; owner may be r1 or r2
// depending on which side of the triangle lost.
type removal struct {
	owner int
	tar   int
}

// PruneMaxEnt removes the weakest edge in every regulator-regulator-target
// triangle (r1, r2, t) where the regulator-regulator edge itself survived
// PruneAlpha. Work is parallelized across r1 with SetLimit(nthreads); each
// goroutine only ever appends to a local slice and then stores it in its
// own perWorker slot, so no slot is shared inside the parallel region — every goroutine's
// removals are merged into a single per-regulator removal set, and
// applied, only after Wait() returns. This mirrors the per-thread removal
// sets the same algorithm uses to avoid concurrent writes to one shared
// container.
func PruneMaxEnt(network Network, tftf TFTFNetwork, nthreads int) (Network, error) {
	regIDs := sortedKeys(network)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(nthreads)

	perWorker := make([][]removal, len(regIDs))

	for i1, r1 := range regIDs {
		i1, r1 := i1, r1
		tft1, ok := tftf[r1]
		if !ok {
			continue
		}
		g.Go(func() error {
			fin1 := indexByTarget(network[r1])
			var local []removal
			for r2, tftfMI := range tft1 {
				if r2 <= r1 {
					continue
				}
				fin2, ok := targetIndexFor(network, r2)
				if !ok {
					continue
				}
				for t, v2 := range fin2 {
					v1, ok := fin1[t]
					if !ok {
						continue
					}
					switch {
					case v1 < tftfMI && v1 < v2:
						local = append(local, removal{owner: r1, tar: t})
					case v2 < tftfMI && v2 < v1:
						local = append(local, removal{owner: r2, tar: t})
					default:
						local = append(local, removal{owner: r1, tar: r2})
						local = append(local, removal{owner: r2, tar: r1})
					}
				}
			}
			perWorker[i1] = local
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	removed := make(map[int]map[int]bool, len(regIDs))
	for _, local := range perWorker {
		for _, rm := range local {
			if removed[rm.owner] == nil {
				removed[rm.owner] = make(map[int]bool)
			}
			removed[rm.owner][rm.tar] = true
		}
	}

	pruned := make(Network, len(network))
	for _, r := range regIDs {
		rem := removed[r]
		for _, e := range network[r] {
			if !rem[e.Tar] {
				pruned[r] = append(pruned[r], e)
			}
		}
	}
	return pruned, nil
}

func targetIndexFor(network Network, r int) (map[int]float64, bool) {
	edges, ok := network[r]
	if !ok {
		return nil, false
	}
	return indexByTarget(edges), true
}

func indexByTarget(edges []Edge) map[int]float64 {
	m := make(map[int]float64, len(edges))
	for _, e := range edges {
		m[e.Tar] = e.MI
	}
	return m
}

// countEdges returns the total number of (reg, tar) edges in network.
func countEdges(network Network) int {
	n := 0
	for _, edges := range network {
		n += len(edges)
	}
	return n
}

// sortedEdges returns every edge in network, ordered by regulator id then
// target id, for deterministic output regardless of map iteration order.
func sortedEdges(network Network) []Edge {
	regs := sortedKeys(network)
	var all []Edge
	for _, r := range regs {
		edges := append([]Edge(nil), network[r]...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].Tar < edges[j].Tar })
		all = append(all, edges...)
	}
	return all
}
