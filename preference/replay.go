package preference

import (
	"math/rand/v2"
)

// Sample is one labelled training example
type Sample struct {
	Genome   []float64
	Features []float64
	Target   float64
	Weight   float64
}

// Replay is a fixed-capacity ring of recent samples
// Appends until full, then overwrites the oldest entry at a wrapping cursor
type Replay struct {
	buf    []Sample
	cursor int
	cap    int
}

func NewReplay(capacity int) *Replay {
	if capacity < 1 {
		capacity = 1
	}
	return &Replay{buf: make([]Sample, 0, capacity), cap: capacity}
}

// Add stores s, evicting the oldest sample when full
func (r *Replay) Add(s Sample) {
	if len(r.buf) < r.cap {
		r.buf = append(r.buf, s)
		return
	}
	r.buf[r.cursor] = s
	r.cursor = (r.cursor + 1) % r.cap
}

// Len returns the number of stored samples
func (r *Replay) Len() int {
	return len(r.buf)
}

// Cap returns the ring capacity
func (r *Replay) Cap() int {
	return r.cap
}

// Batch returns up to n distinct samples in shuffled order
func (r *Replay) Batch(n int, rng *rand.Rand) []Sample {
	n = min(n, len(r.buf))
	if n <= 0 {
		return nil
	}
	perm := rng.Perm(len(r.buf))
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[perm[i]]
	}
	return out
}
