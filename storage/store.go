package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotInitialized is returned by store operations before Init
var ErrNotInitialized = errors.New("store is not initialized")

// Sample is one persisted feedback event
type Sample struct {
	Session     string
	CreatedAt   time.Time
	Genome      []float64
	Features    []float64
	Rating      float64
	Weight      float64
	PlaySeconds float64
}

// Store persists feedback samples and model weight blobs
type Store interface {
	Init(ctx context.Context) error
	SaveSample(ctx context.Context, sample Sample) error
	// RecentSamples returns up to limit samples, oldest first
	RecentSamples(ctx context.Context, limit int) ([]Sample, error)
	SaveWeights(ctx context.Context, name string, blob []float32) error
	LoadWeights(ctx context.Context, name string) ([]float32, bool, error)
	Close() error
}
