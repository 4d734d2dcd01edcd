package preference

// Package preference implements the learned listener-preference fitness model
// 1. One network scores raw genomes, an optional second network scores cached audio features
// 2. Feedback is queued by the host and consumed by a single training goroutine
// 3. Network weights are shared with Evaluate under one mutex
// 4. After each training step both networks are persisted and the sample is logged

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/metrics"
	"github.com/lixenwraith/synth-evolve/parameter"
	"github.com/lixenwraith/synth-evolve/storage"
)

// Modality selects which network Evaluate consults
type Modality int32

const (
	ModalityGenome Modality = iota
	ModalityAudio
)

func (m Modality) String() string {
	if m == ModalityAudio {
		return "audio"
	}
	return "genome"
}

// FeatureSource yields normalized feature vectors for genomes
type FeatureSource interface {
	Features(g genetic.Genome) []float64
}

// Options configures a Model; zero values take defaults from parameter
type Options struct {
	Store        storage.Store
	Dataset      *storage.Dataset
	Features     FeatureSource
	Modality     Modality
	GenomeSize   int
	LearningRate float64
	ReplayBatch  int
	QueueSize    int
	Seed         uint64
	Session      string
	ConfigFlags  string
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Stats reports training progress
type Stats struct {
	Submitted uint64
	Trained   uint64
	Dropped   uint64
	Replay    int
	Steps     int
}

type feedback struct {
	genome genetic.Genome
	rating float64
	play   float64
	at     time.Time
}

// Model is the learned preference fitness model
type Model struct {
	store   storage.Store
	dataset *storage.Dataset
	source  FeatureSource
	logger  *slog.Logger
	metrics *metrics.Metrics
	session string

	learningRate float64
	replayBatch  int

	mu        sync.Mutex
	genomeNet *MLP
	audioNet  *MLP

	modality atomic.Int32
	flagsMu  sync.Mutex
	flags    string

	// Owned by the training goroutine
	replay *Replay
	rng    *rand.Rand

	queue     chan feedback
	submitted atomic.Uint64
	trained   atomic.Uint64
	dropped   atomic.Uint64
	replayLen atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool
}

// New creates a model, restoring saved weights and recent samples from the store when present
// Missing or mismatched weights fall back to fresh initialization
func New(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.GenomeSize <= 0 {
		opts.GenomeSize = parameter.GAGenomeSize
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = parameter.MLPLearningRate
	}
	if opts.ReplayBatch <= 0 {
		opts.ReplayBatch = parameter.ReplayBatchSize
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = parameter.FeedbackQueueSize
	}
	if opts.ConfigFlags == "" {
		opts.ConfigFlags = "baseline"
	}

	rng := genetic.NewRand(opts.Seed)
	m := &Model{
		store:        opts.Store,
		dataset:      opts.Dataset,
		source:       opts.Features,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		session:      opts.Session,
		learningRate: opts.LearningRate,
		replayBatch:  opts.ReplayBatch,
		genomeNet:    NewMLP(opts.GenomeSize, parameter.MLPHiddenSize, rng),
		flags:        opts.ConfigFlags,
		replay:       NewReplay(parameter.ReplayCapacity),
		rng:          rng,
		queue:        make(chan feedback, opts.QueueSize),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	if opts.Features != nil {
		m.audioNet = NewMLP(parameter.FeatureCount, parameter.MLPHiddenSize, rng)
	}
	m.SetModality(opts.Modality)

	m.loadNet(ctx, parameter.WeightsFileName, m.genomeNet)
	if m.audioNet != nil {
		m.loadNet(ctx, parameter.AudioWeightsFileName, m.audioNet)
	}
	m.warmReplay(ctx)

	return m
}

// Start launches the training goroutine; repeated calls are no-ops
func (m *Model) Start() {
	select {
	case <-m.stopChan:
		return
	default:
	}
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	go m.trainLoop()
}

// Close stops training, processes already queued feedback and saves weights
// Returns fitness.ErrStopTimeout when the training goroutine does not exit in time
func (m *Model) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.running.Load() {
			select {
			case <-m.done:
			case <-time.After(parameter.GAJoinTimeout):
				err = fitness.ErrStopTimeout
				m.logger.Error("training worker did not stop", "timeout", parameter.GAJoinTimeout)
				return
			}
		}
		m.saveWeights(m.snapshotWeights())
	})
	return err
}

// SetModality switches the network Evaluate consults
// Audio modality without a feature source stays on the genome network
func (m *Model) SetModality(mod Modality) {
	if mod == ModalityAudio && m.audioNet == nil {
		m.logger.Warn("audio modality requested without feature source, using genome network")
		mod = ModalityGenome
	}
	m.modality.Store(int32(mod))
}

// Modality returns the active input modality
func (m *Model) Modality() Modality {
	return Modality(m.modality.Load())
}

// SetConfigFlags sets the configuration tag logged with each sample
func (m *Model) SetConfigFlags(flags string) {
	m.flagsMu.Lock()
	m.flags = flags
	m.flagsMu.Unlock()
}

// Evaluate predicts the preference for g in [0,1]
func (m *Model) Evaluate(g genetic.Genome) float64 {
	if m.Modality() == ModalityAudio {
		feats := m.source.Features(g)
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.audioNet.Predict(feats)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.genomeNet.Predict(g)
}

// SubmitFeedback queues a rating for asynchronous training; never blocks
// Feedback arriving while the queue is full is dropped and counted
func (m *Model) SubmitFeedback(g genetic.Genome, rating, playSeconds float64) {
	fb := feedback{genome: g.Clone(), rating: rating, play: playSeconds, at: time.Now()}
	select {
	case m.queue <- fb:
		m.submitted.Add(1)
		m.metrics.Feedback(metrics.OutcomeQueued)
	default:
		m.dropped.Add(1)
		m.metrics.Feedback(metrics.OutcomeDropped)
		m.logger.Warn("feedback queue full, sample dropped")
	}
}

// Stats returns training counters
func (m *Model) Stats() Stats {
	m.mu.Lock()
	steps := m.genomeNet.Step()
	m.mu.Unlock()
	return Stats{
		Submitted: m.submitted.Load(),
		Trained:   m.trained.Load(),
		Dropped:   m.dropped.Load(),
		Replay:    int(m.replayLen.Load()),
		Steps:     steps,
	}
}

func (m *Model) trainLoop() {
	defer close(m.done)

	wait := time.NewTimer(parameter.GAWaitTimeout)
	defer wait.Stop()

	for {
		select {
		case <-m.stopChan:
			m.drain()
			return
		case fb := <-m.queue:
			m.process(fb)
		case <-wait.C:
		}
		wait.Reset(parameter.GAWaitTimeout)
	}
}

func (m *Model) drain() {
	for {
		select {
		case fb := <-m.queue:
			m.process(fb)
		default:
			return
		}
	}
}

// process trains on one fresh sample, then replays a shuffled batch from the ring
func (m *Model) process(fb feedback) {
	start := time.Now()

	s := Sample{
		Genome: fb.genome,
		Target: clamp01(fb.rating),
		Weight: fitness.SampleWeight(fb.play),
	}
	if m.audioNet != nil {
		s.Features = m.source.Features(fb.genome)
	}

	m.mu.Lock()
	predGenome := m.genomeNet.Predict(s.Genome)
	predAudio := 0.0
	if m.audioNet != nil {
		predAudio = m.audioNet.Predict(s.Features)
	}
	m.trainSample(s)
	m.mu.Unlock()

	m.replay.Add(s)
	m.replayLen.Store(int64(m.replay.Len()))
	batch := m.replay.Batch(m.replayBatch, m.rng)

	m.mu.Lock()
	for _, r := range batch {
		m.trainSample(r)
	}
	m.mu.Unlock()

	m.saveWeights(m.snapshotWeights())
	index := m.trained.Add(1)

	m.metrics.Feedback(metrics.OutcomeTrained)
	m.metrics.ObserveTraining(time.Since(start))
	m.metrics.Prediction(metrics.NetworkGenome, predGenome)
	if m.audioNet != nil {
		m.metrics.Prediction(metrics.NetworkAudio, predAudio)
	}

	m.record(fb, s, index, predGenome, predAudio)
}

// trainSample updates every network the sample has input for; caller holds mu
func (m *Model) trainSample(s Sample) {
	m.genomeNet.Train(s.Genome, s.Target, m.learningRate, s.Weight)
	if m.audioNet != nil && len(s.Features) == m.audioNet.Inputs() {
		m.audioNet.Train(s.Features, s.Target, m.learningRate, s.Weight)
	}
}

func (m *Model) record(fb feedback, s Sample, index uint64, predGenome, predAudio float64) {
	m.flagsMu.Lock()
	flags := m.flags
	m.flagsMu.Unlock()

	if m.dataset != nil {
		err := m.dataset.Append(storage.Record{
			Genome:          fb.genome,
			Rating:          fb.rating,
			PlaySeconds:     fb.play,
			SampleIndex:     index,
			MLPPrediction:   predGenome,
			AudioPrediction: predAudio,
			ConfigFlags:     flags,
			Timestamp:       fb.at,
			SampleWeight:    s.Weight,
		})
		if err != nil {
			m.logger.Warn("dataset append failed", "error", err)
		}
	}

	if m.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), parameter.GAJoinTimeout)
		defer cancel()
		err := m.store.SaveSample(ctx, storage.Sample{
			Session:     m.session,
			CreatedAt:   fb.at,
			Genome:      fb.genome,
			Features:    s.Features,
			Rating:      s.Target,
			Weight:      s.Weight,
			PlaySeconds: fb.play,
		})
		if err != nil {
			m.logger.Warn("sample store failed", "error", err)
		}
	}

	m.logger.Debug("feedback trained",
		"index", index,
		"rating", fb.rating,
		"weight", s.Weight,
		"prediction", predGenome,
		"audio_prediction", predAudio,
	)
}

type weightSet struct {
	genome []float32
	audio  []float32
}

func (m *Model) snapshotWeights() weightSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := weightSet{genome: m.genomeNet.Weights()}
	if m.audioNet != nil {
		ws.audio = m.audioNet.Weights()
	}
	return ws
}

func (m *Model) saveWeights(ws weightSet) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), parameter.GAJoinTimeout)
	defer cancel()

	if err := m.store.SaveWeights(ctx, parameter.WeightsFileName, ws.genome); err != nil {
		m.logger.Warn("save weights failed", "name", parameter.WeightsFileName, "error", err)
	}
	if ws.audio != nil {
		if err := m.store.SaveWeights(ctx, parameter.AudioWeightsFileName, ws.audio); err != nil {
			m.logger.Warn("save weights failed", "name", parameter.AudioWeightsFileName, "error", err)
		}
	}
}

func (m *Model) loadNet(ctx context.Context, name string, net *MLP) {
	if m.store == nil {
		return
	}
	blob, ok, err := m.store.LoadWeights(ctx, name)
	switch {
	case err != nil:
		m.logger.Warn("load weights failed, starting fresh", "name", name, "error", err)
	case !ok:
		m.logger.Info("no saved weights, starting fresh", "name", name)
	case !net.SetWeights(blob):
		m.logger.Warn("weight count mismatch, starting fresh",
			"name", name, "have", len(blob), "want", net.WeightCount())
	default:
		m.logger.Info("loaded weights", "name", name, "steps", net.Step())
	}
}

// warmReplay refills the ring from persisted samples without training on them
func (m *Model) warmReplay(ctx context.Context) {
	if m.store == nil {
		return
	}
	samples, err := m.store.RecentSamples(ctx, m.replay.Cap())
	if err != nil {
		m.logger.Warn("replay warm start failed", "error", err)
		return
	}
	for _, s := range samples {
		if len(s.Genome) != m.genomeNet.Inputs() {
			continue
		}
		m.replay.Add(Sample{Genome: s.Genome, Features: s.Features, Target: s.Rating, Weight: s.Weight})
	}
	m.replayLen.Store(int64(m.replay.Len()))
	if len(samples) > 0 {
		m.logger.Info("replay warm start", "samples", m.replay.Len())
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
