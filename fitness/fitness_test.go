package fitness

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
	"github.com/lixenwraith/synth-evolve/storage"
)

func TestSampleWeight(t *testing.T) {
	tests := []struct {
		play float64
		want float64
	}{
		{0, 0.5},
		{-3, 0.5},
		{4, 0.75},
		{8, 1},
		{30, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SampleWeight(tt.play), 1e-12, "play=%v", tt.play)
	}
}

func TestBlend(t *testing.T) {
	assert.InDelta(t, 0.7*0.5+0.3*1.0, Blend(0.5, 1.0, 0.3), 1e-12)
	assert.Equal(t, 0.4, Blend(0.4, 0.9, 0))
	assert.Equal(t, 0.9, Blend(0.4, 0.9, 1))
	assert.Equal(t, 1.0, Blend(2, 2, 0.5))
}

func TestConstant(t *testing.T) {
	var m Model = Constant{Score: 0.5}
	assert.Equal(t, 0.5, m.Evaluate(make(genetic.Genome, 17)))
	m.SubmitFeedback(nil, 1, 1)
	assert.Equal(t, 1.0, Constant{Score: 3}.Evaluate(nil))
}

func TestRandom_InRange(t *testing.T) {
	m := NewRandom(7)
	for i := 0; i < 100; i++ {
		v := m.Evaluate(nil)
		assert.True(t, v >= 0 && v < 1)
	}
}

type fixedSource struct {
	features map[float64][]float64
}

func (s fixedSource) Raw(g genetic.Genome, _ float64) []float64 {
	return s.features[g[0]]
}

func TestSimilarity(t *testing.T) {
	target := make([]float64, parameter.FeatureCount)
	near := make([]float64, parameter.FeatureCount)
	far := make([]float64, parameter.FeatureCount)
	copy(near, target)
	copy(far, target)
	near[0] = 1.5 // 0.1 after MFCC scaling
	far[0] = 150  // 10 after MFCC scaling

	src := fixedSource{features: map[float64][]float64{0: target, 1: near, 2: far}}
	sim := NewSimilarity(src, 44100)

	assert.Equal(t, 0.0, sim.Evaluate(genetic.Genome{0}), "no target yet")

	sim.SetTarget(target)
	assert.Equal(t, 1.0, sim.Evaluate(genetic.Genome{0}))

	nearScore := sim.Evaluate(genetic.Genome{1})
	farScore := sim.Evaluate(genetic.Genome{2})
	assert.InDelta(t, 1/1.1, nearScore, 1e-9)
	assert.InDelta(t, 1/11.0, farScore, 1e-9)
	assert.Greater(t, farScore, 0.0)
	assert.Greater(t, nearScore, farScore)
}

func TestDistance_UsesScales(t *testing.T) {
	a := make([]float64, parameter.FeatureCount)
	b := make([]float64, parameter.FeatureCount)
	b[20] = parameter.SimilarityCentroidScale
	b[23] = parameter.SimilarityRMSScale
	assert.InDelta(t, 1.4142135623730951, Distance(a, b), 1e-12)
}

func TestRecorder_WritesRows(t *testing.T) {
	dir := t.TempDir()
	ds, err := storage.OpenDataset(dir, genetic.GeneNames[:], nil)
	require.NoError(t, err)

	rec := NewRecorder(Constant{Score: 0.25}, ds, nil)
	rec.SetConfigFlags("novelty")
	g := make(genetic.Genome, 17)

	assert.Equal(t, 0.25, rec.Evaluate(g))
	rec.SubmitFeedback(g, 1, 2)
	rec.SubmitFeedback(g, 0, 10)
	assert.Equal(t, uint64(2), rec.Samples())
	require.NoError(t, rec.Close())

	f, err := os.Open(ds.Path())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "1", rows[1][col("sampleIndex")])
	assert.Equal(t, "2", rows[2][col("sampleIndex")])
	assert.Equal(t, "0.250000", rows[1][col("mlpPrediction")])
	assert.Equal(t, "novelty", rows[1][col("configFlags")])
	assert.Equal(t, "0.6250", rows[1][col("sampleWeight")])
	assert.Equal(t, "1.0000", rows[2][col("sampleWeight")])

	_, err = time.Parse(time.RFC3339Nano, rows[1][col("timestamp")])
	assert.NoError(t, err)
}
