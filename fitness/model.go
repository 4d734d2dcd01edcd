package fitness

// Package fitness defines how genomes are scored and how listener feedback flows back
// 1. Model is the scoring contract shared by stubs, similarity scoring and the learned model
// 2. Evaluate must be safe to call from the search goroutine while feedback arrives elsewhere
// 3. SubmitFeedback never blocks the caller on training or disk work

import (
	"errors"
	"io"
	"math"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// ErrStopTimeout is returned when a background worker does not exit within the join timeout
var ErrStopTimeout = errors.New("worker did not stop within timeout")

// Model converts a genome into a desirability score in [0,1] and accepts feedback
type Model interface {
	Evaluate(g genetic.Genome) float64
	SubmitFeedback(g genetic.Genome, rating, playSeconds float64)
}

// Close releases model resources when the model holds any
func Close(m Model) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SampleWeight derives a training weight from audition time
// Short listens count half, listens of FeedbackFullWeightPlay or longer count fully
func SampleWeight(playSeconds float64) float64 {
	if playSeconds < 0 || math.IsNaN(playSeconds) {
		playSeconds = 0
	}
	full := parameter.FeedbackFullWeightPlay.Seconds()
	frac := min(1.0, playSeconds/full)
	return parameter.FeedbackMinWeight + (1-parameter.FeedbackMinWeight)*frac
}

// Blend folds a novelty bonus into a score: (1-w)*score + w*novelty
func Blend(score, novelty, weight float64) float64 {
	weight = clamp01(weight)
	return clamp01((1-weight)*score + weight*novelty)
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
