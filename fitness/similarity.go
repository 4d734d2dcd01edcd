package fitness

import (
	"math"
	"sync"

	"github.com/lixenwraith/synth-evolve/features"
	"github.com/lixenwraith/synth-evolve/genetic"
)

// FeatureSource yields raw feature vectors for genomes
type FeatureSource interface {
	Raw(g genetic.Genome, sampleRate float64) []float64
}

// Similarity scores genomes by timbre distance to a target feature vector
// Each dimension difference is divided by its scale before the Euclidean distance
type Similarity struct {
	source     FeatureSource
	sampleRate float64
	toScore    features.NormalizeFunc

	mu     sync.RWMutex
	target []float64
}

// NewSimilarity creates a scorer with no target; it scores 0 until SetTarget
func NewSimilarity(source FeatureSource, sampleRate float64) *Similarity {
	return &Similarity{
		source:     source,
		sampleRate: sampleRate,
		toScore:    features.NormalizeInverse(1),
	}
}

// SetTarget replaces the target raw feature vector
func (s *Similarity) SetTarget(target []float64) {
	t := make([]float64, len(target))
	copy(t, target)

	s.mu.Lock()
	s.target = t
	s.mu.Unlock()
}

// Target returns a copy of the current target
func (s *Similarity) Target() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.target == nil {
		return nil
	}
	out := make([]float64, len(s.target))
	copy(out, s.target)
	return out
}

// Evaluate renders g and returns 1/(1+distance) to the target
func (s *Similarity) Evaluate(g genetic.Genome) float64 {
	s.mu.RLock()
	target := s.target
	s.mu.RUnlock()
	if target == nil {
		return 0
	}

	return s.Score(s.source.Raw(g, s.sampleRate), target)
}

// Score compares two raw feature vectors
func (s *Similarity) Score(candidate, target []float64) float64 {
	return s.toScore(Distance(candidate, target))
}

// SubmitFeedback is a no-op; the target defines fitness
func (s *Similarity) SubmitFeedback(genetic.Genome, float64, float64) {}

// Distance is the scaled Euclidean distance over the shared prefix of two feature vectors
func Distance(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		d := (a[i] - b[i]) / features.Scale(i)
		sum += d * d
	}
	return math.Sqrt(sum)
}
