package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/features"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

func TestPhrase_Timing(t *testing.T) {
	events, total := Phrase(44100)
	require.Equal(t, 88200, total)

	want := []NoteEvent{
		{Offset: 0, Note: 60, Velocity: 110},
		{Offset: 21950, Note: 60},
		{Offset: 22050, Note: 64, Velocity: 80},
		{Offset: 44000, Note: 64},
		{Offset: 44100, Note: 67, Velocity: 50},
		{Offset: 66050, Note: 67},
		{Offset: 66150, Note: 72, Velocity: 100},
		{Offset: 88000, Note: 72},
	}
	assert.Equal(t, want, events)
}

func TestSequence_StreamsExactLength(t *testing.T) {
	seq := PhraseStreamer(openGenome(), 22050)
	require.Equal(t, 44100, seq.Len())

	buf := make([][2]float64, 1000)
	total := 0
	for {
		n, ok := seq.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	assert.Equal(t, seq.Len(), total)
	assert.Equal(t, seq.Len(), seq.Position())
	assert.NoError(t, seq.Err())
}

func TestRenderer_Deterministic(t *testing.T) {
	g := openGenome()
	g[genetic.GeneNoise] = 0.7

	a := Renderer{}.Render(g, 44100)
	b := Renderer{}.Render(g, 44100)

	require.Len(t, a, 88200)
	assert.Equal(t, a, b)
	assert.Greater(t, RMS(a), 0.01)
}

func TestRenderer_GenomesDiffer(t *testing.T) {
	bright := openGenome()
	dark := openGenome()
	dark[genetic.GeneFilterFreq] = 0.2

	a := Renderer{}.Render(bright, 44100)
	b := Renderer{}.Render(dark, 44100)
	assert.NotEqual(t, a, b)
}

func TestPipeline_WithCache(t *testing.T) {
	cache := features.NewCache(features.Pipeline{
		Renderer:  Renderer{},
		Extractor: NewExtractor(),
	}, 44100, 0)

	g := openGenome()
	first := cache.Features(g)
	second := cache.Features(g)

	require.Len(t, first, parameter.FeatureCount)
	assert.Equal(t, first, second)
	for i, v := range first {
		assert.GreaterOrEqual(t, v, 0.0, "dimension %d", i)
		assert.LessOrEqual(t, v, 1.0, "dimension %d", i)
	}

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}
