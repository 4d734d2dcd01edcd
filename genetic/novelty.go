package genetic

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Novelty scores how far g sits from its k nearest neighbours in genomes
// The mean neighbour distance is normalized by the unit hypercube diagonal and clamped to [0,1]
// Neighbours of mismatched length are skipped
func Novelty(g Genome, genomes []Genome, k int) float64 {
	if len(g) == 0 || k <= 0 {
		return 0
	}

	dists := make([]float64, 0, len(genomes))
	for _, other := range genomes {
		if len(other) != len(g) {
			continue
		}
		dists = append(dists, floats.Distance(g, other, 2))
	}
	if len(dists) == 0 {
		return 0
	}

	slices.Sort(dists)
	n := min(k, len(dists))
	mean := floats.Sum(dists[:n]) / float64(n)

	return clamp01(mean / math.Sqrt(float64(len(g))))
}
