package search

import (
	"sync"
	"time"

	"github.com/lixenwraith/synth-evolve/genetic"
)

// Result kinds
const (
	KindSeed    = "seed"
	KindBest    = "best"
	KindExplore = "explore"
)

// Result is one published proposal
type Result struct {
	Genome     genetic.Genome
	Fitness    float64
	Kind       string
	Generation uint64
	At         time.Time
}

// Mailbox is a single-slot, overwrite-on-push handoff from the scheduler to one consumer
// There is no backlog: the consumer always sees the latest proposal
type Mailbox struct {
	mu     sync.Mutex
	result Result
	ready  bool

	// consumed wakes a producer waiting for the slot to drain
	consumed chan struct{}
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{consumed: make(chan struct{}, 1)}
}

// Push stores r, replacing any unconsumed result
func (m *Mailbox) Push(r Result) {
	r.Genome = r.Genome.Clone()
	m.mu.Lock()
	m.result = r
	m.ready = true
	m.mu.Unlock()
}

// Pop reads and clears the slot; false when nothing is ready
// Never blocks on the producer
func (m *Mailbox) Pop() (Result, bool) {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return Result{}, false
	}
	r := m.result
	m.result = Result{}
	m.ready = false
	m.mu.Unlock()

	select {
	case m.consumed <- struct{}{}:
	default:
	}
	return r, true
}

// Ready reports whether an unconsumed result is waiting
func (m *Mailbox) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Clear drops any unconsumed result
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.result = Result{}
	m.ready = false
	m.mu.Unlock()
}

// Consumed signals after a successful Pop; one pending signal at most
func (m *Mailbox) Consumed() <-chan struct{} {
	return m.consumed
}
