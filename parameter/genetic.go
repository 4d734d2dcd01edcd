package parameter

import "time"

// Persistence paths relative to the data directory
const (
	// GeneticSnapshotDir is the directory for population snapshot files
	GeneticSnapshotDir = "populations"
)

// Genetic Algorithm - Population Configuration
const (
	// GAGenomeSize is the number of synth parameters evolved per genome
	GAGenomeSize = 17

	// GAPoolSize is the number of individuals in the population
	GAPoolSize = 50

	// GAOffspringPerGeneration is the number of children bred per steady-state step
	GAOffspringPerGeneration = 10

	// GATournamentSize for selection pressure
	GATournamentSize = 3

	// GACrossoverMixProbability is the chance a gene comes from parent A
	GACrossoverMixProbability = 0.5

	// GAMutationRate is the per-gene probability of perturbation (0.0-1.0)
	GAMutationRate = 0.1

	// GAMutationStrength is the half-width of the uniform perturbation (0.0-1.0)
	GAMutationStrength = 0.2

	// GAFitnessTolerance lets a best offspring within 2% of the best-so-far be published
	GAFitnessTolerance = 0.02
)

// Genetic Algorithm - Exploration
const (
	// GAEpsilon is the constant probability of publishing a random member
	GAEpsilon = 0.25

	// GAEpsilonMax is the adaptive starting epsilon
	GAEpsilonMax = 0.5

	// GAEpsilonMin is the adaptive floor
	GAEpsilonMin = 0.05

	// GAEpsilonDecay is the per-generation multiplicative decay
	GAEpsilonDecay = 0.99
)

// Genetic Algorithm - Novelty
const (
	// GANoveltyK is the neighbour count for the novelty score
	GANoveltyK = 5

	// GANoveltyWeight is the novelty share of the blended fitness in multi-objective mode
	GANoveltyWeight = 0.3

	// GANoveltyBonusWeight is the novelty share when novelty is on without multi-objective blending
	GANoveltyBonusWeight = 0.1
)

// Genetic Algorithm - Audibility Repair
const (
	// GARepairEnvWeight scales the positive filter-envelope contribution
	GARepairEnvWeight = 0.7

	// GARepairMinAudibility is the minimum combined cutoff+envelope score
	GARepairMinAudibility = 0.35
)

// Genetic Algorithm - Scheduler Timing
const (
	// GAWaitTimeout bounds every blocking wait of the search loop
	GAWaitTimeout = 100 * time.Millisecond

	// GAJoinTimeout bounds worker shutdown
	GAJoinTimeout = 2 * time.Second

	// GALogInterval is the generation count between debug progress lines
	GALogInterval = 100
)
