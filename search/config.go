package search

import (
	"github.com/lixenwraith/synth-evolve/parameter"
)

// Config holds scheduler settings
// Out-of-range fields fall back to defaults when the scheduler applies the config
type Config struct {
	// PopulationSize is the number of individuals; applied at Start
	PopulationSize int
	// GenomeSize is the number of genes per individual; applied at Start
	GenomeSize int
	// OffspringPerGeneration is the number of children bred and slots replaced per step
	OffspringPerGeneration int
	// TournamentSize is the number of candidates per selection
	TournamentSize int
	// MutationRate is the per-gene perturbation probability (0-1)
	MutationRate float64
	// MutationStrength is the perturbation half-width (0-1)
	MutationStrength float64
	// FitnessTolerance lets a best offspring within this fraction of the best-so-far be published
	FitnessTolerance float64

	// Epsilon is the constant exploration probability
	Epsilon float64
	// Adaptive decays exploration from EpsilonMax toward EpsilonMin
	Adaptive     bool
	EpsilonMin   float64
	EpsilonMax   float64
	EpsilonDecay float64

	// Novelty folds a diversity term into every evaluated score
	Novelty  bool
	NoveltyK int
	// MultiObjective uses NoveltyWeight for the blend instead of the bonus weight
	// It has no effect unless Novelty is set
	MultiObjective bool
	NoveltyWeight  float64

	// Seed for the scheduler RNG (0 for random seed)
	Seed uint64
}

// DefaultConfig returns baseline settings: constant epsilon, no novelty
func DefaultConfig() Config {
	return Config{
		PopulationSize:         parameter.GAPoolSize,
		GenomeSize:             parameter.GAGenomeSize,
		OffspringPerGeneration: parameter.GAOffspringPerGeneration,
		TournamentSize:         parameter.GATournamentSize,
		MutationRate:           parameter.GAMutationRate,
		MutationStrength:       parameter.GAMutationStrength,
		FitnessTolerance:       parameter.GAFitnessTolerance,
		Epsilon:                parameter.GAEpsilon,
		EpsilonMin:             parameter.GAEpsilonMin,
		EpsilonMax:             parameter.GAEpsilonMax,
		EpsilonDecay:           parameter.GAEpsilonDecay,
		NoveltyK:               parameter.GANoveltyK,
		NoveltyWeight:          parameter.GANoveltyWeight,
	}
}

// normalized returns a copy with out-of-range values replaced by defaults
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.PopulationSize < 2 {
		c.PopulationSize = d.PopulationSize
	}
	if c.GenomeSize < 1 {
		c.GenomeSize = d.GenomeSize
	}
	if c.OffspringPerGeneration < 1 {
		c.OffspringPerGeneration = d.OffspringPerGeneration
	}
	if c.TournamentSize < 1 {
		c.TournamentSize = d.TournamentSize
	}
	if !unit(c.MutationRate) {
		c.MutationRate = d.MutationRate
	}
	if !unit(c.MutationStrength) {
		c.MutationStrength = d.MutationStrength
	}
	if !unit(c.FitnessTolerance) {
		c.FitnessTolerance = d.FitnessTolerance
	}
	if !unit(c.Epsilon) {
		c.Epsilon = d.Epsilon
	}
	if !unit(c.EpsilonMin) {
		c.EpsilonMin = d.EpsilonMin
	}
	if !unit(c.EpsilonMax) || c.EpsilonMax < c.EpsilonMin {
		c.EpsilonMax = max(d.EpsilonMax, c.EpsilonMin)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		c.EpsilonDecay = d.EpsilonDecay
	}
	if c.NoveltyK < 1 {
		c.NoveltyK = d.NoveltyK
	}
	if !unit(c.NoveltyWeight) {
		c.NoveltyWeight = d.NoveltyWeight
	}
	return c
}

// noveltyWeight is the blend weight in effect, 0 when novelty is off
func (c Config) noveltyWeight() float64 {
	switch {
	case !c.Novelty:
		return 0
	case c.MultiObjective:
		return c.NoveltyWeight
	default:
		return parameter.GANoveltyBonusWeight
	}
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
