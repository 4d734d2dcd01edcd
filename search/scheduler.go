package search

// Package search runs the interactive steady-state evolution loop
// 1. Scheduler owns the population on its own goroutine; other goroutines only see copies
// 2. Results leave through a single-slot Mailbox; a full mailbox pauses generation
// 3. Every blocking wait is bounded so Stop is observed within one wait cycle

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/synth-evolve/fitness"
	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/metrics"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// ErrStopTimeout is returned by Stop when the worker does not exit within the join timeout
var ErrStopTimeout = fitness.ErrStopTimeout

// Sentinel errors
var (
	ErrNoModel = errors.New("scheduler has no fitness model")
	ErrRunning = errors.New("scheduler is running")
	// ErrWorkerBusy is returned by Start while a worker that missed its join timeout is still alive
	ErrWorkerBusy = errors.New("previous search worker has not exited")
)

// State is the scheduler lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time view of scheduler progress
type Stats struct {
	Session           string
	State             State
	Generation        uint64
	BestFitness       float64
	AverageFitness    float64
	WorstFitness      float64
	BestSoFar         float64
	Epsilon           float64
	Published         uint64
	Explored          uint64
	BackpressureWaits uint64
}

// Options configures a Scheduler
type Options struct {
	Model   fitness.Model
	Mailbox *Mailbox // nil creates one
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Scheduler drives the search loop through Idle, Running, Paused and Stopped
type Scheduler struct {
	model   fitness.Model
	mailbox *Mailbox
	base    *slog.Logger
	logger  *slog.Logger
	metrics *metrics.Metrics

	// lifecycle guards Start/Stop against each other
	lifecycle sync.Mutex
	state     atomic.Int32
	paused    atomic.Bool
	resume    chan struct{}
	stopChan  chan struct{}
	done      chan struct{}

	// mu guards config, seed, stats and the published snapshot
	mu        sync.Mutex
	cfg       Config
	cfgDirty  bool
	seed      []genetic.Individual
	stats     Stats
	snapshot  []genetic.Individual
	published atomic.Uint64
	explored  atomic.Uint64
	waits     atomic.Uint64

	// Worker-owned state
	pop        *genetic.Population
	rng        *rand.Rand
	active     Config
	epsilon    float64
	bestSoFar  float64
	generation uint64
	selector   genetic.TournamentSelector
	combiner   genetic.UniformCombiner
	mutator    genetic.UniformPerturbator
}

// NewScheduler creates an idle scheduler
func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mb := opts.Mailbox
	if mb == nil {
		mb = NewMailbox()
	}
	return &Scheduler{
		model:   opts.Model,
		mailbox: mb,
		base:    logger,
		logger:  logger,
		metrics: opts.Metrics,
		cfg:     opts.Config.normalized(),
		resume:  make(chan struct{}, 1),
	}
}

// Mailbox returns the result mailbox
func (s *Scheduler) Mailbox() *Mailbox {
	return s.mailbox
}

// State returns the lifecycle state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Config returns the latest requested configuration
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration
// Operator and exploration settings apply at the next generation, sizes at the next Start
func (s *Scheduler) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.normalized()
	s.cfgDirty = true
	s.mu.Unlock()
}

// Seed stages individuals for the next Start; extra or mismatched entries are dropped
// Missing slots are filled randomly
func (s *Scheduler) Seed(individuals []genetic.Individual) error {
	switch s.State() {
	case StateRunning, StatePaused:
		return ErrRunning
	}
	s.mu.Lock()
	s.seed = make([]genetic.Individual, 0, len(individuals))
	for _, ind := range individuals {
		s.seed = append(s.seed, ind.Clone())
	}
	s.mu.Unlock()
	return nil
}

// Start seeds and evaluates the population, publishes its best member and launches the loop
// Starting a running or paused scheduler is a no-op
func (s *Scheduler) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.State() {
	case StateRunning, StatePaused:
		return nil
	}
	if s.model == nil {
		return ErrNoModel
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrWorkerBusy
		}
	}

	s.mu.Lock()
	cfg := s.cfg
	seed := s.seed
	s.seed = nil
	s.cfgDirty = false
	s.mu.Unlock()

	session := uuid.NewString()
	s.logger = s.base.With("session", session)
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.paused.Store(false)
	s.drainResume()

	s.initialize(cfg, seed)

	s.mu.Lock()
	s.stats = Stats{Session: session}
	s.mu.Unlock()
	s.publishStats(0)

	if best, ok := s.pop.Best(); ok {
		s.push(best, KindSeed)
	}

	s.state.Store(int32(StateRunning))
	s.logger.Info("search started",
		"population", s.pop.Len(),
		"genome_size", s.pop.GenomeSize(),
		"best", s.bestSoFar,
		"seeded", len(seed),
	)

	go s.loop(s.stopChan, s.done)
	return nil
}

// Pause suspends generation; the loop keeps observing Stop
func (s *Scheduler) Pause() {
	if s.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		s.paused.Store(true)
		s.logger.Debug("search paused")
	}
}

// Resume continues a paused scheduler
func (s *Scheduler) Resume() {
	if s.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		s.paused.Store(false)
		select {
		case s.resume <- struct{}{}:
		default:
		}
		s.logger.Debug("search resumed")
	}
}

// Stop terminates the loop and discards the population
// Returns ErrStopTimeout when the worker does not exit within the join timeout
func (s *Scheduler) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.State() {
	case StateRunning, StatePaused:
	default:
		return nil
	}

	close(s.stopChan)
	s.paused.Store(false)

	timer := time.NewTimer(parameter.GAJoinTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-s.done:
	case <-timer.C:
		err = ErrStopTimeout
		s.logger.Error("search worker did not stop", "timeout", parameter.GAJoinTimeout)
	}

	s.state.Store(int32(StateStopped))
	// A stuck worker still owns the population; Start refuses until it exits
	if err == nil {
		s.pop = nil
		s.bestSoFar = 0
	}

	s.mu.Lock()
	s.stats.State = StateStopped
	generations := s.stats.Generation
	s.mu.Unlock()

	s.logger.Info("search stopped", "generations", generations)
	return err
}

// Stats returns a copy of the latest progress counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	st := s.stats
	s.mu.Unlock()
	st.State = s.State()
	st.Published = s.published.Load()
	st.Explored = s.explored.Load()
	st.BackpressureWaits = s.waits.Load()
	return st
}

// Snapshot returns deep copies of the population as of the last completed generation
func (s *Scheduler) Snapshot() []genetic.Individual {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]genetic.Individual, len(s.snapshot))
	for i := range s.snapshot {
		out[i] = s.snapshot[i].Clone()
	}
	return out
}

// --- Worker ---

func (s *Scheduler) initialize(cfg Config, seed []genetic.Individual) {
	s.active = cfg
	s.rng = genetic.NewRand(cfg.Seed)
	s.generation = 0
	s.applyOperators(cfg)
	s.epsilon = cfg.Epsilon
	if cfg.Adaptive {
		s.epsilon = cfg.EpsilonMax
	}

	s.pop = genetic.NewPopulation(cfg.PopulationSize, cfg.GenomeSize)
	s.pop.Randomize(s.rng)

	slot := 0
	for _, ind := range seed {
		if slot >= s.pop.Len() {
			break
		}
		if ind.Len() != cfg.GenomeSize {
			s.logger.Warn("seed genome length mismatch", "got", ind.Len(), "want", cfg.GenomeSize)
			continue
		}
		s.pop.Replace(slot, genetic.NewIndividualFrom(ind.Genes()))
		slot++
	}

	// Initial evaluation happens synchronously so the first proposal is ready on return
	for i := 0; i < s.pop.Len(); i++ {
		ind := s.pop.At(i)
		if genetic.RepairIndividual(&ind) {
			s.pop.Replace(i, ind)
		}
	}
	genomes := s.pop.Genomes()
	for i := 0; i < s.pop.Len(); i++ {
		ind := s.pop.At(i)
		// A member is not its own neighbour
		others := slices.Concat(genomes[:i], genomes[i+1:])
		ind.SetFitness(s.evaluate(ind.Genes(), others))
		s.pop.Replace(i, ind)
	}
	s.pop.MarkDirty()
	s.bestSoFar = s.pop.BestFitness()
	s.storeSnapshot()
}

func (s *Scheduler) applyOperators(cfg Config) {
	s.selector = genetic.TournamentSelector{Size: cfg.TournamentSize}
	s.combiner = genetic.UniformCombiner{MixProbability: parameter.GACrossoverMixProbability}
	s.mutator = genetic.UniformPerturbator{Rate: cfg.MutationRate, Strength: cfg.MutationStrength}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(parameter.GAWaitTimeout)
	defer timer.Stop()

	// wait blocks until wake fires, the timeout elapses or stop closes
	// Returns false on stop
	wait := func(wake <-chan struct{}) bool {
		timer.Reset(parameter.GAWaitTimeout)
		select {
		case <-stop:
			return false
		case <-wake:
		case <-timer.C:
		}
		return true
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		if s.paused.Load() {
			if !wait(s.resume) {
				return
			}
			continue
		}

		// Backpressure: an unconsumed proposal means the listener has not caught up
		if s.mailbox.Ready() {
			s.waits.Add(1)
			s.metrics.Backpressure()
			if !wait(s.mailbox.Consumed()) {
				return
			}
			continue
		}

		s.refreshConfig()
		if !s.step(stop) {
			return
		}
	}
}

func (s *Scheduler) refreshConfig() {
	s.mu.Lock()
	if !s.cfgDirty {
		s.mu.Unlock()
		return
	}
	next := s.cfg
	s.cfgDirty = false
	s.mu.Unlock()

	// Sizes are fixed for the session
	next.PopulationSize = s.active.PopulationSize
	next.GenomeSize = s.active.GenomeSize

	if next.Adaptive && !s.active.Adaptive {
		s.epsilon = next.EpsilonMax
	}
	s.active = next
	s.applyOperators(next)
	s.logger.Info("search config applied",
		"adaptive", next.Adaptive,
		"novelty", next.Novelty,
		"multi_objective", next.MultiObjective,
	)
}

// step runs one steady-state generation; false when interrupted by stop
func (s *Scheduler) step(stop <-chan struct{}) bool {
	start := time.Now()
	cfg := s.active
	genomes := s.pop.Genomes()

	offspring := make([]genetic.Individual, 0, cfg.OffspringPerGeneration)
	for i := 0; i < cfg.OffspringPerGeneration; i++ {
		select {
		case <-stop:
			return false
		default:
		}

		a := s.selector.Select(s.pop, s.rng)
		b := s.selector.Select(s.pop, s.rng)
		child := s.combiner.Combine(s.pop.At(a), s.pop.At(b), s.rng)
		s.mutator.Perturb(&child, s.rng)
		genetic.RepairIndividual(&child)
		child.SetFitness(s.evaluate(child.Genes(), genomes))
		offspring = append(offspring, child)
	}

	s.replaceWorst(offspring)
	s.generation++

	if cfg.Adaptive {
		s.epsilon = max(cfg.EpsilonMin, s.epsilon*cfg.EpsilonDecay)
	} else {
		s.epsilon = cfg.Epsilon
	}

	s.publish(offspring, cfg)
	s.bestSoFar = max(s.bestSoFar, s.pop.BestFitness())

	s.storeSnapshot()
	s.publishStats(time.Since(start))
	return true
}

// evaluate scores g, folding in novelty against genomes when enabled
func (s *Scheduler) evaluate(g genetic.Genome, genomes []genetic.Genome) float64 {
	score := s.model.Evaluate(g)
	if w := s.active.noveltyWeight(); w > 0 {
		novelty := genetic.Novelty(g, genomes, s.active.NoveltyK)
		score = fitness.Blend(score, novelty, w)
	}
	return score
}

// replaceWorst swaps offspring into the lowest-fitness evaluated slots, worst first
func (s *Scheduler) replaceWorst(offspring []genetic.Individual) {
	if len(offspring) == 0 {
		return
	}
	ranked := make([]int, 0, s.pop.Len())
	for i := 0; i < s.pop.Len(); i++ {
		if s.pop.Evaluated(i) {
			ranked = append(ranked, i)
		}
	}
	slices.SortStableFunc(ranked, func(a, b int) int {
		fa, fb := s.pop.Fitness(a), s.pop.Fitness(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	})

	n := min(len(offspring), len(ranked))
	for i := 0; i < n; i++ {
		s.pop.Replace(ranked[i], offspring[i])
	}
	s.pop.MarkDirty()
}

// publish pushes either an exploratory member or the best offspring within tolerance
func (s *Scheduler) publish(offspring []genetic.Individual, cfg Config) {
	if s.rng.Float64() < s.epsilon {
		s.push(s.pop.At(s.rng.IntN(s.pop.Len())), KindExplore)
		s.explored.Add(1)
		return
	}

	bestIdx := -1
	for i := range offspring {
		if bestIdx < 0 || offspring[i].Fitness() > offspring[bestIdx].Fitness() {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return
	}
	best := offspring[bestIdx]
	if best.Fitness() >= s.bestSoFar*(1-cfg.FitnessTolerance) {
		s.push(best, KindBest)
	}
}

func (s *Scheduler) push(ind genetic.Individual, kind string) {
	s.mailbox.Push(Result{
		Genome:     ind.Genes(),
		Fitness:    ind.Fitness(),
		Kind:       kind,
		Generation: s.generation,
		At:         time.Now(),
	})
	s.published.Add(1)
	s.metrics.Published(kind)
}

func (s *Scheduler) storeSnapshot() {
	snap := s.pop.Snapshot()
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func (s *Scheduler) publishStats(d time.Duration) {
	ps := s.pop.Stats()
	s.mu.Lock()
	s.stats.Generation = s.generation
	s.stats.BestFitness = ps.BestScore
	s.stats.AverageFitness = ps.AverageScore
	s.stats.WorstFitness = ps.WorstScore
	s.stats.BestSoFar = s.bestSoFar
	s.stats.Epsilon = s.epsilon
	s.mu.Unlock()

	if s.generation > 0 {
		s.metrics.ObserveGeneration(d, ps.BestScore, ps.AverageScore, ps.WorstScore, s.epsilon)
		if s.generation%parameter.GALogInterval == 0 {
			s.logger.Debug("generation",
				"n", s.generation,
				"best", ps.BestScore,
				"avg", ps.AverageScore,
				"epsilon", s.epsilon,
			)
		}
	}
}

func (s *Scheduler) drainResume() {
	select {
	case <-s.resume:
	default:
	}
}
