package fitness

import (
	"math/rand/v2"
	"sync"

	"github.com/lixenwraith/synth-evolve/genetic"
)

// Constant scores every genome the same
type Constant struct {
	Score float64
}

func (c Constant) Evaluate(genetic.Genome) float64 {
	return clamp01(c.Score)
}

func (c Constant) SubmitFeedback(genetic.Genome, float64, float64) {}

// Random scores genomes with uniform noise
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a random scorer; seed 0 draws a random seed
func NewRandom(seed uint64) *Random {
	return &Random{rng: genetic.NewRand(seed)}
}

func (r *Random) Evaluate(genetic.Genome) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Random) SubmitFeedback(genetic.Genome, float64, float64) {}
