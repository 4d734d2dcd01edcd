package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "synth_evolve"

// Metrics holds the collectors for search, training and the feature cache
// A nil *Metrics is valid and records nothing
type Metrics struct {
	// generations counts completed steady-state generations
	generations prometheus.Counter
	// published counts mailbox pushes by kind (best, explore, seed)
	published *prometheus.CounterVec
	// backpressure counts loop iterations skipped because the mailbox was full
	backpressure prometheus.Counter
	// generationDuration tracks generation latency
	generationDuration prometheus.Histogram
	// fitness reports population statistics by kind (best, average, worst)
	fitness *prometheus.GaugeVec
	// epsilon reports the current exploration rate
	epsilon prometheus.Gauge

	// feedback counts feedback events by outcome (queued, dropped, trained)
	feedback *prometheus.CounterVec
	// trainDuration tracks one fresh-plus-replay training step
	trainDuration prometheus.Histogram
	// prediction reports the model prediction at feedback time by network
	prediction *prometheus.GaugeVec

	// cacheLookups counts feature cache lookups by result (hit, miss)
	cacheLookups *prometheus.CounterVec
}

// New registers all collectors with reg; nil uses a private registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		generations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Completed search generations",
		}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Genomes published to the mailbox by kind",
		}, []string{"kind"}),
		backpressure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_waits_total",
			Help:      "Search waits caused by an unconsumed mailbox",
		}),
		generationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
		fitness: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_fitness",
			Help:      "Population fitness statistics by kind",
		}, []string{"kind"}),
		epsilon: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exploration_epsilon",
			Help:      "Current exploration probability",
		}),
		feedback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback events by outcome",
		}, []string{"outcome"}),
		trainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_duration_seconds",
			Help:      "Training step duration including replay",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		prediction: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prediction",
			Help:      "Model prediction for the last feedback sample by network",
		}, []string{"network"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_cache_lookups_total",
			Help:      "Feature cache lookups by result",
		}, []string{"result"}),
	}
}

// Publish kinds
const (
	KindBest    = "best"
	KindExplore = "explore"
	KindSeed    = "seed"
)

// Feedback outcomes
const (
	OutcomeQueued  = "queued"
	OutcomeDropped = "dropped"
	OutcomeTrained = "trained"
)

// Network labels
const (
	NetworkGenome = "genome"
	NetworkAudio  = "audio"
)

func (m *Metrics) ObserveGeneration(d time.Duration, best, avg, worst, epsilon float64) {
	if m == nil {
		return
	}
	m.generations.Inc()
	m.generationDuration.Observe(d.Seconds())
	m.fitness.WithLabelValues("best").Set(best)
	m.fitness.WithLabelValues("average").Set(avg)
	m.fitness.WithLabelValues("worst").Set(worst)
	m.epsilon.Set(epsilon)
}

func (m *Metrics) Published(kind string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind).Inc()
}

func (m *Metrics) Backpressure() {
	if m == nil {
		return
	}
	m.backpressure.Inc()
}

func (m *Metrics) Feedback(outcome string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTraining(d time.Duration) {
	if m == nil {
		return
	}
	m.trainDuration.Observe(d.Seconds())
}

func (m *Metrics) Prediction(network string, value float64) {
	if m == nil {
		return
	}
	m.prediction.WithLabelValues(network).Set(value)
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}
