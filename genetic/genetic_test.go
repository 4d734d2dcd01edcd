package genetic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearPopulation(size int) *Population {
	pop := NewPopulation(size, 4)
	for i := 0; i < size; i++ {
		pop.SetFitness(i, float64(i))
	}
	return pop
}

func TestTournamentSelector_FavoursTopHalf(t *testing.T) {
	pop := linearPopulation(50)
	sel := &TournamentSelector{Size: 3}
	rng := NewRand(42)

	top := 0
	const trials = 1000
	for i := 0; i < trials; i++ {
		idx := sel.Select(pop, rng)
		require.GreaterOrEqual(t, idx, 0)
		if idx >= pop.Len()/2 {
			top++
		}
	}
	assert.Greater(t, top, trials/2, "tournament should favour fitter half")
}

func TestTournamentSelector_Empty(t *testing.T) {
	sel := &TournamentSelector{}
	assert.Equal(t, -1, sel.Select(NewPopulation(0, 17), NewRand(1)))
}

func TestTournamentSelector_SingleCandidate(t *testing.T) {
	pop := linearPopulation(10)
	sel := &TournamentSelector{Size: 1}
	rng := NewRand(7)
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		seen[sel.Select(pop, rng)] = true
	}
	// Size 1 is a uniform draw, the worst member must show up
	assert.True(t, seen[0])
}

func TestUniformCombiner_NoInterpolation(t *testing.T) {
	rng := NewRand(3)
	comb := &UniformCombiner{MixProbability: 0.5}

	for trial := 0; trial < 100; trial++ {
		a := NewIndividualFrom(RandomGenome(17, rng))
		b := NewIndividualFrom(RandomGenome(17, rng))
		a.SetFitness(0.9)

		child := comb.Combine(a, b, rng)
		require.Equal(t, 17, child.Len())
		assert.False(t, child.Evaluated())
		for i := 0; i < child.Len(); i++ {
			g := child.Gene(i)
			if g != a.Gene(i) && g != b.Gene(i) {
				t.Fatalf("gene %d = %v is neither parent (%v, %v)", i, g, a.Gene(i), b.Gene(i))
			}
		}
	}
}

func TestUniformCombiner_DoesNotAliasParents(t *testing.T) {
	rng := NewRand(5)
	a := NewIndividualFrom(Genome{0.1, 0.2, 0.3})
	b := NewIndividualFrom(Genome{0.4, 0.5, 0.6})

	child := (&UniformCombiner{}).Combine(a, b, rng)
	child.SetGene(0, 0.99)

	assert.Equal(t, 0.1, a.Gene(0))
	assert.Equal(t, 0.4, b.Gene(0))
}

func TestUniformPerturbator_StaysInBounds(t *testing.T) {
	rng := NewRand(11)
	mut := &UniformPerturbator{Rate: 1.0, Strength: 1.0}

	starts := []Genome{
		make(Genome, 17),
		RandomGenome(17, rng),
	}
	ones := make(Genome, 17)
	for i := range ones {
		ones[i] = 1
	}
	starts = append(starts, ones)

	for _, g := range starts {
		for trial := 0; trial < 50; trial++ {
			ind := NewIndividualFrom(g)
			ind.SetFitness(0.5)
			mutated := mut.Perturb(&ind, rng)
			require.True(t, mutated)
			assert.False(t, ind.Evaluated())
			for i := 0; i < ind.Len(); i++ {
				v := ind.Gene(i)
				if v < 0 || v > 1 {
					t.Fatalf("gene %d out of bounds: %v", i, v)
				}
			}
		}
	}
}

func TestUniformPerturbator_ZeroRateKeepsFitness(t *testing.T) {
	rng := NewRand(13)
	ind := NewIndividualFrom(RandomGenome(17, rng))
	ind.SetFitness(0.7)
	before := ind.Genes().Clone()

	mutated := (&UniformPerturbator{Rate: 0, Strength: 1}).Perturb(&ind, rng)

	assert.False(t, mutated)
	assert.True(t, ind.Evaluated())
	assert.Equal(t, before, ind.Genes())
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name        string
		cutoff, env float64
		wantChanged bool
	}{
		{"closed filter no envelope", 0.1, 0.3, true},
		{"closed filter weak envelope", 0.1, 0.6, true},
		{"open filter", 0.8, 0.3, false},
		{"envelope compensates", 0.2, 0.9, false},
		{"zero cutoff", 0.0, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := make(Genome, 17)
			g[GeneFilterFreq] = tt.cutoff
			g[GeneFilterEnv] = tt.env

			changed := Repair(g)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.cutoff, g[GeneFilterFreq], "cutoff must not be touched")
			if tt.wantChanged {
				assert.Greater(t, g[GeneFilterEnv], tt.env)
				assert.LessOrEqual(t, g[GeneFilterEnv], 1.0)
				assert.InDelta(t, 0.35, Audibility(g), 1e-9)
			} else {
				assert.Equal(t, tt.env, g[GeneFilterEnv])
			}
		})
	}
}

func TestRepair_ShortGenome(t *testing.T) {
	g := Genome{0, 0, 0}
	assert.False(t, Repair(g))
	assert.Equal(t, 0.0, Audibility(g))
}

func TestRepairIndividual_Invalidates(t *testing.T) {
	ind := NewIndividual(17)
	ind.SetFitness(0.4)
	assert.True(t, RepairIndividual(&ind))
	assert.False(t, ind.Evaluated())

	ind.SetFitness(0.4)
	assert.False(t, RepairIndividual(&ind))
	assert.True(t, ind.Evaluated())
}

func TestNovelty(t *testing.T) {
	g := Genome{0, 0, 0, 0}
	far := Genome{1, 1, 1, 1}

	assert.Equal(t, 0.0, Novelty(g, nil, 5))
	assert.Equal(t, 0.0, Novelty(g, []Genome{g.Clone()}, 5))
	assert.InDelta(t, 1.0, Novelty(g, []Genome{far}, 5), 1e-12)

	// k limits the neighbourhood to the nearest members
	near := Genome{0.5, 0.5, 0.5, 0.5}
	got := Novelty(g, []Genome{far, near, far}, 1)
	assert.InDelta(t, 0.5, got, 1e-12)

	// mismatched neighbours are ignored
	assert.Equal(t, 0.0, Novelty(g, []Genome{{1, 1}}, 3))
}

func TestNovelty_Bounded(t *testing.T) {
	rng := NewRand(17)
	pop := make([]Genome, 20)
	for i := range pop {
		pop[i] = RandomGenome(17, rng)
	}
	for i := 0; i < 50; i++ {
		n := Novelty(RandomGenome(17, rng), pop, 5)
		if n < 0 || n > 1 || math.IsNaN(n) {
			t.Fatalf("novelty out of range: %v", n)
		}
	}
}

func TestNewRand_Deterministic(t *testing.T) {
	a := NewRand(99)
	b := NewRand(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}
