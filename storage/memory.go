package storage

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	samples     []Sample
	weights     map[string][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.weights = make(map[string][]float32)
	return nil
}

func (s *MemoryStore) SaveSample(_ context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	sample.Genome = slices.Clone(sample.Genome)
	sample.Features = slices.Clone(sample.Features)
	s.samples = append(s.samples, sample)
	return nil
}

func (s *MemoryStore) RecentSamples(_ context.Context, limit int) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	start := 0
	if limit >= 0 && len(s.samples) > limit {
		start = len(s.samples) - limit
	}
	out := make([]Sample, len(s.samples)-start)
	copy(out, s.samples[start:])
	return out, nil
}

func (s *MemoryStore) SaveWeights(_ context.Context, name string, blob []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.weights[name] = slices.Clone(blob)
	return nil
}

func (s *MemoryStore) LoadWeights(_ context.Context, name string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	blob, ok := s.weights[name]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(blob), true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
