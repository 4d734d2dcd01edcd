package genetic

import (
	"math"
	"math/rand/v2"
)

// Population is a fixed-size collection of individuals with lazily cached statistics
// Statistics consider evaluated individuals only and are valid while not dirty
type Population struct {
	members    []Individual
	genomeSize int

	bestIndex    int
	avgFitness   float64
	worstFitness float64
	dirty        bool
}

// NewPopulation allocates size zero-filled individuals of genomeSize genes
func NewPopulation(size, genomeSize int) *Population {
	if size < 0 {
		size = 0
	}
	members := make([]Individual, size)
	for i := range members {
		members[i] = NewIndividual(genomeSize)
	}
	return &Population{
		members:    members,
		genomeSize: genomeSize,
		bestIndex:  -1,
		dirty:      true,
	}
}

// Len returns the number of slots
func (p *Population) Len() int {
	return len(p.members)
}

// GenomeSize returns the genome length of every member
func (p *Population) GenomeSize() int {
	return p.genomeSize
}

// Randomize fills every member with uniform [0,1) genes and invalidates fitness
func (p *Population) Randomize(rng *rand.Rand) {
	for i := range p.members {
		genes := make(Genome, p.genomeSize)
		for j := range genes {
			genes[j] = rng.Float64()
		}
		p.members[i].SetGenes(genes)
	}
	p.MarkDirty()
}

// At returns a shallow copy of the member at index; its genes must not be modified
// Panics when index is out of range
func (p *Population) At(index int) Individual {
	return p.members[index]
}

// Fitness returns the fitness stored at index without copying the member
func (p *Population) Fitness(index int) float64 {
	return p.members[index].fitness
}

// Evaluated reports whether the member at index has a valid fitness
func (p *Population) Evaluated(index int) bool {
	return p.members[index].evaluated
}

// SetFitness assigns a score to the member at index
func (p *Population) SetFitness(index int, fitness float64) {
	p.members[index].SetFitness(fitness)
	p.MarkDirty()
}

// Replace overwrites a slot with a deep copy of ind
// Out-of-range indices are a programming error and panic
func (p *Population) Replace(index int, ind Individual) {
	p.members[index] = ind.Clone()
	p.MarkDirty()
}

// MarkDirty invalidates cached statistics
func (p *Population) MarkDirty() {
	p.dirty = true
}

// Best returns a copy of the best evaluated individual
func (p *Population) Best() (Individual, bool) {
	idx := p.BestIndex()
	if idx < 0 {
		return Individual{}, false
	}
	return p.members[idx].Clone(), true
}

// BestIndex returns the index of the best evaluated individual or -1
// Ties resolve to the earliest index
func (p *Population) BestIndex() int {
	p.updateStatistics()
	return p.bestIndex
}

// BestFitness returns the best evaluated fitness, 0 when none is evaluated
func (p *Population) BestFitness() float64 {
	p.updateStatistics()
	if p.bestIndex < 0 {
		return 0
	}
	return p.members[p.bestIndex].fitness
}

// AverageFitness returns the mean over evaluated members, 0 when none is evaluated
func (p *Population) AverageFitness() float64 {
	p.updateStatistics()
	return p.avgFitness
}

// WorstFitness returns the minimum over evaluated members, 0 when none is evaluated
func (p *Population) WorstFitness() float64 {
	p.updateStatistics()
	return p.worstFitness
}

// Stats returns best, average and worst fitness in one pass
func (p *Population) Stats() PoolStats {
	best := p.BestFitness()
	return PoolStats{
		BestScore:    best,
		AverageScore: p.avgFitness,
		WorstScore:   p.worstFitness,
	}
}

// Snapshot returns deep copies of every member
func (p *Population) Snapshot() []Individual {
	out := make([]Individual, len(p.members))
	for i := range p.members {
		out[i] = p.members[i].Clone()
	}
	return out
}

// Genomes returns the genes of every member without copying; read-only
func (p *Population) Genomes() []Genome {
	out := make([]Genome, len(p.members))
	for i := range p.members {
		out[i] = p.members[i].genes
	}
	return out
}

func (p *Population) updateStatistics() {
	if !p.dirty {
		return
	}

	best := math.Inf(-1)
	worst := math.Inf(1)
	sum := 0.0
	evaluated := 0
	p.bestIndex = -1

	for i := range p.members {
		m := &p.members[i]
		if !m.evaluated {
			continue
		}
		sum += m.fitness
		evaluated++
		if m.fitness > best {
			best = m.fitness
			p.bestIndex = i
		}
		if m.fitness < worst {
			worst = m.fitness
		}
	}

	if evaluated > 0 {
		p.avgFitness = sum / float64(evaluated)
		p.worstFitness = worst
	} else {
		p.avgFitness = 0
		p.worstFitness = 0
	}
	p.dirty = false
}

// PoolStats contains statistical information about a population
type PoolStats struct {
	BestScore    float64
	AverageScore float64
	WorstScore   float64
}
