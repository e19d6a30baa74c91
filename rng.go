package grn

import "math/rand"

// deriveSeed mixes a parent seed and a stream id into a new 64-bit seed via
// a SplitMix64-style avalanche mix, so that independent deterministic
// substreams can be handed to parallel workers from one base seed.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// deriveRNG returns an independent deterministic RNG stream derived from
// base and stream. base must not be shared across goroutines; deriveRNG is
// meant to be called serially, once per worker, before any worker starts.
func deriveRNG(base *rand.Rand, stream uint64) *rand.Rand {
	parent := base.Int63()
	return rand.New(rand.NewSource(deriveSeed(parent, stream)))
}

// sampleWithoutReplacement draws k distinct indices from [0, n) using rng,
// via a partial Fisher-Yates shuffle of a scratch permutation. The result
// is returned unsorted; callers that need a sorted index set sort it
// themselves.
func sampleWithoutReplacement(n, k int, rng *rand.Rand) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
