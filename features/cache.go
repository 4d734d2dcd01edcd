package features

import (
	"math"
	"sync"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/metrics"
	"github.com/lixenwraith/synth-evolve/parameter"
)

const noSlot = -1

// slot is one arena entry linked into the recency list
type slot struct {
	key      uint64
	genome   genetic.Genome
	features []float64
	prev     int
	next     int
}

// CacheStats is a point-in-time view of cache counters
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// Cache memoizes normalized feature vectors per genome with LRU eviction
// Keys are derived from the exact float bit pattern, so 0.0 and -0.0 are distinct genomes
type Cache struct {
	mu         sync.Mutex
	pipeline   Pipeline
	sampleRate float64
	metrics    *metrics.Metrics

	slots []slot
	index map[uint64]int
	free  []int
	head  int // most recent
	tail  int // least recent

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewCache creates a cache of the given capacity; capacity <= 0 uses FeatureCacheCapacity
func NewCache(pipeline Pipeline, sampleRate float64, capacity int) *Cache {
	if capacity <= 0 {
		capacity = parameter.FeatureCacheCapacity
	}
	c := &Cache{
		pipeline:   pipeline,
		sampleRate: sampleRate,
		slots:      make([]slot, capacity),
		index:      make(map[uint64]int, capacity),
	}
	c.reset()
	return c
}

// SetMetrics attaches lookup counters; call before concurrent use
func (c *Cache) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Features returns the normalized feature vector for g, rendering on a miss
// The returned slice is a copy
func (c *Cache) Features(g genetic.Genome) []float64 {
	key := HashGenome(g)

	c.mu.Lock()
	if idx, ok := c.index[key]; ok && bitsEqual(c.slots[idx].genome, g) {
		c.hits++
		c.moveToFront(idx)
		out := clone(c.slots[idx].features)
		c.mu.Unlock()
		c.metrics.CacheLookup(true)
		return out
	}
	c.misses++
	rate := c.sampleRate
	c.mu.Unlock()
	c.metrics.CacheLookup(false)

	// Render outside the lock; the pipeline is the expensive part
	feats := Normalize(c.pipeline.Raw(g, rate))

	c.mu.Lock()
	defer c.mu.Unlock()
	// Sample rate changed while rendering, result belongs to a cleared generation
	if c.sampleRate != rate {
		return feats
	}
	c.insert(key, g, feats)
	return clone(feats)
}

// Has reports whether g is cached without touching recency or counters
func (c *Cache) Has(g genetic.Genome) bool {
	key := HashGenome(g)

	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.index[key]
	return ok && bitsEqual(c.slots[idx].genome, g)
}

// SetSampleRate changes the render rate and clears the cache when it moves by at least 1 Hz
func (c *Cache) SetSampleRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if math.Abs(rate-c.sampleRate) < 1 {
		return
	}
	c.sampleRate = rate
	c.reset()
}

// SampleRate returns the current render rate
func (c *Cache) SampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

// Clear drops every entry and resets counters
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Len returns the number of cached genomes
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns current counters
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.index),
		Capacity:  len(c.slots),
	}
}

func (c *Cache) insert(key uint64, g genetic.Genome, feats []float64) {
	// Same key: either a concurrent miss already stored it or a hash collision, overwrite in place
	if idx, ok := c.index[key]; ok {
		c.slots[idx].genome = g.Clone()
		c.slots[idx].features = feats
		c.moveToFront(idx)
		return
	}

	if len(c.free) == 0 {
		c.evict()
	}
	idx := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]

	c.slots[idx] = slot{key: key, genome: g.Clone(), features: feats, prev: noSlot, next: noSlot}
	c.index[key] = idx
	c.pushFront(idx)
}

func (c *Cache) evict() {
	idx := c.tail
	if idx == noSlot {
		return
	}
	c.unlink(idx)
	delete(c.index, c.slots[idx].key)
	c.slots[idx] = slot{prev: noSlot, next: noSlot}
	c.free = append(c.free, idx)
	c.evictions++
}

func (c *Cache) moveToFront(idx int) {
	if c.head == idx {
		return
	}
	c.unlink(idx)
	c.pushFront(idx)
}

func (c *Cache) pushFront(idx int) {
	s := &c.slots[idx]
	s.prev = noSlot
	s.next = c.head
	if c.head != noSlot {
		c.slots[c.head].prev = idx
	}
	c.head = idx
	if c.tail == noSlot {
		c.tail = idx
	}
}

func (c *Cache) unlink(idx int) {
	s := &c.slots[idx]
	if s.prev != noSlot {
		c.slots[s.prev].next = s.next
	} else {
		c.head = s.next
	}
	if s.next != noSlot {
		c.slots[s.next].prev = s.prev
	} else {
		c.tail = s.prev
	}
	s.prev, s.next = noSlot, noSlot
}

func (c *Cache) reset() {
	clear(c.index)
	c.free = c.free[:0]
	for i := len(c.slots) - 1; i >= 0; i-- {
		c.slots[i] = slot{prev: noSlot, next: noSlot}
		c.free = append(c.free, i)
	}
	c.head, c.tail = noSlot, noSlot
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// HashGenome combines the raw bit patterns of every gene
func HashGenome(g genetic.Genome) uint64 {
	var h uint64
	for _, v := range g {
		h ^= math.Float64bits(v) + 0x9e3779b9 + (h << 6) + (h >> 2)
	}
	return h
}

func bitsEqual(a, b genetic.Genome) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
