package genetic

// Package genetic provides the population model and stateless operators for the preset search
// 1. Genomes are fixed-length vectors of normalized [0,1] synth parameters
// 2. Operators never touch the population directly except through selection reads
// 3. Fitness is invalidated by any gene write; statistics skip unevaluated members

import (
	"math/rand/v2"

	"github.com/lixenwraith/synth-evolve/parameter"
)

// --- Concrete Operator Implementations ---

// TournamentSelector implements tournament selection with replacement
// Randomly samples Size members and returns the index of the fittest
type TournamentSelector struct {
	// Size is the number of candidates competing in each tournament
	Size int
}

// Select returns the winning member index, or -1 for an empty population
// Ties keep the first drawn candidate
func (ts *TournamentSelector) Select(pop *Population, rng *rand.Rand) int {
	poolSize := pop.Len()
	if poolSize == 0 {
		return -1
	}

	size := ts.Size
	if size < 1 {
		size = parameter.GATournamentSize
	}

	bestIdx := rng.IntN(poolSize)
	bestScore := pop.Fitness(bestIdx)
	for i := 1; i < size; i++ {
		idx := rng.IntN(poolSize)
		if score := pop.Fitness(idx); score > bestScore {
			bestIdx = idx
			bestScore = score
		}
	}
	return bestIdx
}

// UniformCombiner performs uniform crossover between two parents
// Each gene is copied verbatim from one parent, never interpolated
type UniformCombiner struct {
	// MixProbability is the chance of taking a gene from parent A
	MixProbability float64
}

// Combine creates one unevaluated offspring
// The shorter parent bounds the offspring length
func (uc *UniformCombiner) Combine(a, b Individual, rng *rand.Rand) Individual {
	length := min(a.Len(), b.Len())
	mix := uc.MixProbability
	if mix <= 0 || mix >= 1 {
		mix = parameter.GACrossoverMixProbability
	}

	genes := make(Genome, length)
	for i := 0; i < length; i++ {
		if rng.Float64() < mix {
			genes[i] = a.genes[i]
		} else {
			genes[i] = b.genes[i]
		}
	}
	return Individual{genes: genes}
}

// UniformPerturbator applies uniform additive noise with [0,1] clamping
type UniformPerturbator struct {
	// Rate is the per-gene mutation probability (0-1)
	Rate float64
	// Strength is the half-width of the perturbation interval
	Strength float64
}

// Perturb mutates ind in place and reports whether any gene was touched
// Touched individuals lose their fitness
func (up *UniformPerturbator) Perturb(ind *Individual, rng *rand.Rand) bool {
	mutated := false
	for i := range ind.genes {
		if rng.Float64() >= up.Rate {
			continue
		}
		delta := (rng.Float64()*2 - 1) * up.Strength
		ind.genes[i] = clamp01(ind.genes[i] + delta)
		mutated = true
	}
	if mutated {
		ind.evaluated = false
	}
	return mutated
}

// RandomGenome draws a uniform [0,1) genome
func RandomGenome(size int, rng *rand.Rand) Genome {
	g := make(Genome, size)
	for i := range g {
		g[i] = rng.Float64()
	}
	return g
}

// NewRand creates a PCG generator; seed 0 draws a random seed
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
