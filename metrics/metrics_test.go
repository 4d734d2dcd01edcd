package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration(time.Millisecond, 1, 0.5, 0, 0.25)
	m.Published(KindBest)
	m.Backpressure()
	m.Feedback(OutcomeQueued)
	m.ObserveTraining(time.Millisecond)
	m.Prediction(NetworkGenome, 0.5)
	m.CacheLookup(true)
}

func TestMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveGeneration(2*time.Millisecond, 0.9, 0.5, 0.1, 0.25)
	m.ObserveGeneration(2*time.Millisecond, 0.95, 0.6, 0.2, 0.2)
	m.Published(KindBest)
	m.Published(KindExplore)
	m.Published(KindExplore)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations))
	assert.Equal(t, 0.95, testutil.ToFloat64(m.fitness.WithLabelValues("best")))
	assert.Equal(t, 0.2, testutil.ToFloat64(m.epsilon))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues(KindExplore)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))

	count, err := testutil.GatherAndCount(reg, "synth_evolve_generations_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
