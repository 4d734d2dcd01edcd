package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

func halfGenome() []float64 {
	g := make([]float64, parameter.GAGenomeSize)
	for i := range g {
		g[i] = 0.5
	}
	return g
}

func TestMLP_UntrainedPredictsHalf(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		net := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, genetic.NewRand(seed))
		assert.InDelta(t, 0.5, net.Predict(halfGenome()), 0.01)
		assert.Equal(t, 0.5, net.Predict(genetic.RandomGenome(17, genetic.NewRand(seed+10))))
	}
}

func TestMLP_TrainingTowardOneIncreasesPrediction(t *testing.T) {
	net := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, genetic.NewRand(3))
	input := halfGenome()

	prev := net.Predict(input)
	for i := 0; i < 20; i++ {
		net.Train(input, 1, parameter.MLPLearningRate, 1)
		next := net.Predict(input)
		require.Greater(t, next, prev, "iteration %d", i)
		prev = next
	}
	assert.Equal(t, 20, net.Step())
}

func TestMLP_TrainingTowardZeroDecreasesPrediction(t *testing.T) {
	net := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, genetic.NewRand(4))
	input := halfGenome()

	before := net.Predict(input)
	for i := 0; i < 50; i++ {
		net.Train(input, 0, 0.01, 1)
	}
	assert.Less(t, net.Predict(input), before)
}

func TestMLP_WeightRoundTrip(t *testing.T) {
	rng := genetic.NewRand(5)
	net := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, rng)
	for i := 0; i < 30; i++ {
		g := genetic.RandomGenome(17, rng)
		net.Train(g, float64(i%2), 0.01, 0.75)
	}

	blob := net.Weights()
	require.Len(t, blob, net.WeightCount())

	fresh := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, genetic.NewRand(99))
	require.True(t, fresh.SetWeights(blob))
	assert.Equal(t, net.Step(), fresh.Step())

	for i := 0; i < 20; i++ {
		g := genetic.RandomGenome(17, rng)
		assert.InDelta(t, net.Predict(g), fresh.Predict(g), 1e-4)
	}
}

func TestMLP_WeightCountMismatchLeavesNetwork(t *testing.T) {
	net := NewMLP(parameter.GAGenomeSize, parameter.MLPHiddenSize, genetic.NewRand(6))
	before := net.Weights()

	assert.False(t, net.SetWeights(make([]float32, 10)))
	assert.Equal(t, before, net.Weights())
}

func TestWeightCount(t *testing.T) {
	base := 17*32 + 32 + 32 + 1
	assert.Equal(t, 3*base+1, WeightCount(17, 32))
	assert.Equal(t, WeightCount(24, 32), NewMLP(24, 32, genetic.NewRand(1)).WeightCount())
}

func TestMLP_ShortInputReadsZero(t *testing.T) {
	net := NewMLP(4, 8, genetic.NewRand(7))
	net.Train([]float64{1, 1, 1, 1}, 1, 0.05, 1)
	assert.Equal(t, net.Predict([]float64{1, 1}), net.Predict([]float64{1, 1, 0, 0}))
}

func TestReplay_RingOverwrite(t *testing.T) {
	r := NewReplay(3)
	for i := 0; i < 5; i++ {
		r.Add(Sample{Target: float64(i)})
	}
	assert.Equal(t, 3, r.Len())

	seen := make(map[float64]bool)
	for _, s := range r.Batch(10, genetic.NewRand(1)) {
		seen[s.Target] = true
	}
	assert.Equal(t, map[float64]bool{2: true, 3: true, 4: true}, seen)
}

func TestReplay_BatchDistinct(t *testing.T) {
	r := NewReplay(64)
	for i := 0; i < 20; i++ {
		r.Add(Sample{Target: float64(i)})
	}
	batch := r.Batch(8, genetic.NewRand(2))
	require.Len(t, batch, 8)

	seen := make(map[float64]bool)
	for _, s := range batch {
		assert.False(t, seen[s.Target], "duplicate sample in batch")
		seen[s.Target] = true
	}
	assert.Nil(t, NewReplay(4).Batch(8, genetic.NewRand(3)))
}
