package genetic

import (
	"errors"
)

// --- Core Data Structures ---

// Genome is an ordered vector of normalized [0,1] synth parameters
type Genome []float64

// Clone returns an independent copy
func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	out := make(Genome, len(g))
	copy(out, g)
	return out
}

// Individual is a genome with its evaluated fitness
// Any parameter write invalidates the fitness
type Individual struct {
	genes     Genome
	fitness   float64
	evaluated bool
}

// NewIndividual creates a zero-filled individual of the given genome length
func NewIndividual(size int) Individual {
	if size < 0 {
		size = 0
	}
	return Individual{genes: make(Genome, size)}
}

// NewIndividualFrom creates an unevaluated individual holding a copy of genes
func NewIndividualFrom(genes Genome) Individual {
	return Individual{genes: genes.Clone()}
}

// Len returns the genome length
func (ind *Individual) Len() int {
	return len(ind.genes)
}

// Gene returns the value at index, or 0 when out of range
func (ind *Individual) Gene(index int) float64 {
	if index < 0 || index >= len(ind.genes) {
		return 0
	}
	return ind.genes[index]
}

// SetGene writes one parameter and invalidates fitness; out-of-range writes are ignored
func (ind *Individual) SetGene(index int, value float64) {
	if index < 0 || index >= len(ind.genes) {
		return
	}
	ind.genes[index] = value
	ind.evaluated = false
}

// Genes exposes the backing genome for reading; callers must not modify it
func (ind *Individual) Genes() Genome {
	return ind.genes
}

// SetGenes replaces the genome with a copy and invalidates fitness
func (ind *Individual) SetGenes(genes Genome) {
	ind.genes = genes.Clone()
	ind.evaluated = false
}

// Fitness returns the last assigned fitness
func (ind *Individual) Fitness() float64 {
	return ind.fitness
}

// SetFitness stores a score and marks the individual evaluated
func (ind *Individual) SetFitness(fitness float64) {
	ind.fitness = fitness
	ind.evaluated = true
}

// Evaluated reports whether the fitness is valid for the current genes
func (ind *Individual) Evaluated() bool {
	return ind.evaluated
}

// Clone returns a deep copy including fitness state
func (ind Individual) Clone() Individual {
	ind.genes = ind.genes.Clone()
	return ind
}

// ErrGenomeLength is returned when a genome does not have the expected number of genes
var ErrGenomeLength = errors.New("genome length mismatch")
