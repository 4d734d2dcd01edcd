package features

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// countingPipeline derives features from the first gene so results are distinguishable
type countingPipeline struct {
	renders atomic.Int64
}

func (p *countingPipeline) Render(g genetic.Genome, sampleRate float64) []float64 {
	p.renders.Add(1)
	return []float64{g[0], sampleRate}
}

func (p *countingPipeline) Extract(samples []float64, _ float64) []float64 {
	raw := make([]float64, parameter.FeatureCount)
	raw[IndexMFCCMean] = samples[0]*100 - 50
	raw[IndexCentroidMean] = samples[1] / 10
	raw[IndexRMS] = 1 // above range, clamps
	return raw
}

func newTestCache(capacity int) (*Cache, *countingPipeline) {
	p := &countingPipeline{}
	return NewCache(Pipeline{Renderer: p, Extractor: p}, 44100, capacity), p
}

func TestCache_HitAfterMiss(t *testing.T) {
	c, p := newTestCache(0)
	g := genetic.RandomGenome(17, genetic.NewRand(1))

	first := c.Features(g)
	second := c.Features(g.Clone())

	assert.Equal(t, first, second)
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, int64(1), p.renders.Load())
	assert.Equal(t, parameter.FeatureCacheCapacity, stats.Capacity)
}

func TestCache_NormalizesAndClamps(t *testing.T) {
	c, _ := newTestCache(4)
	g := genetic.Genome{0.25, 0.5}

	f := c.Features(g)
	require.Len(t, f, parameter.FeatureCount)
	assert.InDelta(t, 0.25, f[IndexMFCCMean], 1e-12)
	assert.Equal(t, 1.0, f[IndexRMS])
	for i, v := range f {
		if v < 0 || v > 1 {
			t.Fatalf("feature %d not normalized: %v", i, v)
		}
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c, _ := newTestCache(4)
	g := genetic.Genome{0.5}
	f := c.Features(g)
	f[0] = 99
	assert.NotEqual(t, 99.0, c.Features(g)[0])
}

func TestCache_BoundedSize(t *testing.T) {
	c, _ := newTestCache(0)
	rng := genetic.NewRand(2)
	for i := 0; i < 140; i++ {
		c.Features(genetic.RandomGenome(17, rng))
		require.LessOrEqual(t, c.Len(), parameter.FeatureCacheCapacity)
	}
	stats := c.Stats()
	assert.Equal(t, parameter.FeatureCacheCapacity, stats.Size)
	assert.Equal(t, uint64(140-parameter.FeatureCacheCapacity), stats.Evictions)
}

func TestCache_EvictsLeastRecent(t *testing.T) {
	c, _ := newTestCache(2)
	a := genetic.Genome{0.1}
	b := genetic.Genome{0.2}
	d := genetic.Genome{0.3}

	c.Features(a)
	c.Features(b)
	c.Features(a) // a becomes most recent
	c.Features(d) // evicts b

	assert.True(t, c.Has(a))
	assert.False(t, c.Has(b))
	assert.True(t, c.Has(d))
}

func TestCache_BitExactKeys(t *testing.T) {
	c, p := newTestCache(4)
	pos := genetic.Genome{0.0, 0.5}
	neg := genetic.Genome{math.Copysign(0, -1), 0.5}

	c.Features(pos)
	c.Features(neg)

	assert.Equal(t, int64(2), p.renders.Load())
	assert.Equal(t, 2, c.Len())
	assert.NotEqual(t, HashGenome(pos), HashGenome(neg))
}

func TestCache_SampleRateClears(t *testing.T) {
	c, p := newTestCache(4)
	g := genetic.Genome{0.5}
	c.Features(g)

	c.SetSampleRate(44100.5)
	assert.True(t, c.Has(g), "sub-hertz change keeps entries")

	c.SetSampleRate(48000)
	assert.False(t, c.Has(g))
	assert.Equal(t, CacheStats{Capacity: 4}, c.Stats())

	c.Features(g)
	assert.Equal(t, int64(2), p.renders.Load())
	assert.Equal(t, 48000.0, c.SampleRate())
}

func TestCache_ClearResets(t *testing.T) {
	c, _ := newTestCache(4)
	c.Features(genetic.Genome{0.5})
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().Misses)
}

func TestNormalize_WrongLength(t *testing.T) {
	out := Normalize([]float64{1, 2, 3})
	assert.Len(t, out, parameter.FeatureCount)
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestNormalizers(t *testing.T) {
	lin := NormalizeLinear(0, 10)
	assert.Equal(t, 0.5, lin(5))
	assert.Equal(t, 0.0, lin(-1))
	assert.Equal(t, 1.0, lin(11))
	assert.Equal(t, 0.0, NormalizeLinear(1, 1)(5))
}
