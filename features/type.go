package features

// Package features turns genomes into fixed-length timbre descriptors and memoizes them
// 1. Renderer plays a genome into a mono waveform
// 2. Extractor reduces the waveform to FeatureCount raw values
// 3. Cache stores normalized vectors keyed by exact genome bit pattern

import (
	"github.com/lixenwraith/synth-evolve/genetic"
)

// Renderer synthesizes the audition phrase for a genome
type Renderer interface {
	Render(g genetic.Genome, sampleRate float64) []float64
}

// Extractor computes raw features from a mono waveform
type Extractor interface {
	Extract(samples []float64, sampleRate float64) []float64
}

// Pipeline couples a renderer and an extractor
type Pipeline struct {
	Renderer  Renderer
	Extractor Extractor
}

// Raw renders g and returns its unnormalized feature vector
func (p Pipeline) Raw(g genetic.Genome, sampleRate float64) []float64 {
	return p.Extractor.Extract(p.Renderer.Render(g, sampleRate), sampleRate)
}
