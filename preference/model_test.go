package preference

import (
	"context"
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

type constFeatures struct{}

func (constFeatures) Features(g genetic.Genome) []float64 {
	out := make([]float64, parameter.FeatureCount)
	for i := range out {
		out[i] = g[i%len(g)]
	}
	return out
}

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestModel_UntrainedEvaluate(t *testing.T) {
	m := New(context.Background(), Options{Seed: 1})
	assert.InDelta(t, 0.5, m.Evaluate(halfGenome()), 0.01)
	require.NoError(t, m.Close())
}

func TestModel_FeedbackTrainsAsynchronously(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	dir := t.TempDir()
	ds, err := storage.OpenDataset(dir, genetic.GeneNames[:], nil)
	require.NoError(t, err)
	defer ds.Close()

	m := New(ctx, Options{Store: store, Dataset: ds, Seed: 2, Session: "test", ConfigFlags: "novelty"})
	m.Start()

	g := genetic.Genome(halfGenome())
	before := m.Evaluate(g)
	for i := 0; i < 5; i++ {
		m.SubmitFeedback(g, 1, 10)
	}

	require.Eventually(t, func() bool { return m.Stats().Trained == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, m.Evaluate(g), before)

	stats := m.Stats()
	assert.Equal(t, uint64(5), stats.Submitted)
	assert.Equal(t, 5, stats.Replay)
	assert.Greater(t, stats.Steps, 5, "replay adds updates beyond fresh samples")

	require.NoError(t, m.Close())

	blob, ok, err := store.LoadWeights(ctx, parameter.WeightsFileName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, blob, WeightCount(parameter.GAGenomeSize, parameter.MLPHiddenSize))

	samples, err := store.RecentSamples(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
	assert.Equal(t, "test", samples[0].Session)

	f, err := os.Open(ds.Path())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestModel_RestoresWeights(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first := New(ctx, Options{Store: store, Seed: 3})
	first.Start()
	g := genetic.Genome(halfGenome())
	first.SubmitFeedback(g, 1, 8)
	require.Eventually(t, func() bool { return first.Stats().Trained == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, first.Close())
	want := first.Evaluate(g)

	second := New(ctx, Options{Store: store, Seed: 4})
	defer second.Close()
	assert.InDelta(t, want, second.Evaluate(g), 1e-4)
	assert.Equal(t, 1, second.Stats().Replay, "replay warm start from store")
}

func TestModel_MismatchedWeightsFallBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.SaveWeights(ctx, parameter.WeightsFileName, make([]float32, 12)))

	m := New(ctx, Options{Store: store, Seed: 5})
	defer m.Close()
	assert.Equal(t, 0.5, m.Evaluate(halfGenome()))
}

func TestModel_AudioModality(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	m := New(ctx, Options{Store: store, Features: constFeatures{}, Modality: ModalityAudio, Seed: 6})
	assert.Equal(t, ModalityAudio, m.Modality())
	m.Start()

	g := genetic.Genome(halfGenome())
	before := m.Evaluate(g)
	m.SubmitFeedback(g, 1, 8)
	require.Eventually(t, func() bool { return m.Stats().Trained == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, m.Evaluate(g), before)
	require.NoError(t, m.Close())

	_, ok, err := store.LoadWeights(ctx, parameter.AudioWeightsFileName)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestModel_AudioModalityWithoutSource(t *testing.T) {
	m := New(context.Background(), Options{Modality: ModalityAudio})
	defer m.Close()
	assert.Equal(t, ModalityGenome, m.Modality())
	assert.Equal(t, 0.5, m.Evaluate(halfGenome()))
}

func TestModel_QueueFullDrops(t *testing.T) {
	m := New(context.Background(), Options{QueueSize: 2, Seed: 7})
	g := genetic.Genome(halfGenome())
	for i := 0; i < 5; i++ {
		m.SubmitFeedback(g, 1, 1)
	}
	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.Submitted)
	assert.Equal(t, uint64(3), stats.Dropped)

	// Not started: Close still succeeds
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestModel_CloseDrainsQueue(t *testing.T) {
	m := New(context.Background(), Options{Seed: 8})
	m.Start()
	g := genetic.Genome(halfGenome())
	for i := 0; i < 10; i++ {
		m.SubmitFeedback(g, 0, 1)
	}
	require.NoError(t, m.Close())
	assert.Equal(t, uint64(10), m.Stats().Trained)
}
