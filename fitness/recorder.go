package fitness

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/storage"
)

// Recorder logs feedback to the dataset without learning from it
// Scores come from an inner model so sessions can collect labelled data before any training exists
type Recorder struct {
	inner   Model
	dataset *storage.Dataset
	logger  *slog.Logger

	mu      sync.Mutex
	flags   string
	samples atomic.Uint64
}

// NewRecorder wraps inner; a nil inner scores randomly
func NewRecorder(inner Model, dataset *storage.Dataset, logger *slog.Logger) *Recorder {
	if inner == nil {
		inner = NewRandom(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{inner: inner, dataset: dataset, logger: logger, flags: "baseline"}
}

// SetConfigFlags sets the configuration tag written with every row
func (r *Recorder) SetConfigFlags(flags string) {
	r.mu.Lock()
	r.flags = flags
	r.mu.Unlock()
}

func (r *Recorder) Evaluate(g genetic.Genome) float64 {
	return r.inner.Evaluate(g)
}

// SubmitFeedback appends one row; write failures are logged and dropped
func (r *Recorder) SubmitFeedback(g genetic.Genome, rating, playSeconds float64) {
	prediction := r.inner.Evaluate(g)
	r.inner.SubmitFeedback(g, rating, playSeconds)

	if r.dataset == nil {
		return
	}
	r.mu.Lock()
	flags := r.flags
	r.mu.Unlock()

	err := r.dataset.Append(storage.Record{
		Genome:        g,
		Rating:        rating,
		PlaySeconds:   playSeconds,
		SampleIndex:   r.samples.Add(1),
		MLPPrediction: prediction,
		ConfigFlags:   flags,
		Timestamp:     time.Now(),
		SampleWeight:  SampleWeight(playSeconds),
	})
	if err != nil {
		r.logger.Warn("dataset append failed", "error", err)
	}
}

// Samples returns the number of feedback events recorded
func (r *Recorder) Samples() uint64 {
	return r.samples.Load()
}

// Close closes the dataset and the inner model
func (r *Recorder) Close() error {
	var err error
	if r.dataset != nil {
		err = r.dataset.Close()
	}
	if cerr := Close(r.inner); err == nil {
		err = cerr
	}
	return err
}
